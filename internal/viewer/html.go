package viewer

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"anotador/internal/anchor"
	"anotador/internal/geometry"
)

// DocxParser converts the current DOCX version of a project to HTML.
// *project.Client implements it.
type DocxParser interface {
	ParseDocx(ctx context.Context, id string) (string, error)
}

// MeasureFunc reports the rendered height of the HTML flow in unscaled
// pixels. It is supplied by the embedding view, which is the only
// place the real layout height is known.
type MeasureFunc func() float64

// A4 page geometry used to slice the continuous HTML flow into
// virtual pages.
const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0
	pxPerMM    = 3.7795275591
)

// HTMLFlowSource serves a DOCX rendered to one continuous HTML flow.
// Pagination is a heuristic: the flow is cut into A4-height virtual
// pages; every page shares the same rectangle.
type HTMLFlowSource struct {
	parser    DocxParser
	projectID string
	measure   MeasureFunc

	index *anchor.HTMLIndex
	pages int
}

var (
	_ Source     = (*HTMLFlowSource)(nil)
	_ Anchorable = (*HTMLFlowSource)(nil)
)

// NewHTMLFlowSource builds a source for the given project. measure may
// be nil, in which case the whole flow counts as a single page.
func NewHTMLFlowSource(parser DocxParser, projectID string, measure MeasureFunc) *HTMLFlowSource {
	return &HTMLFlowSource{parser: parser, projectID: projectID, measure: measure}
}

func (s *HTMLFlowSource) Load(ctx context.Context) error {
	raw, err := s.parser.ParseDocx(ctx, s.projectID)
	if err != nil {
		return fmt.Errorf("parse docx for project %s: %w", s.projectID, err)
	}

	index, err := anchor.ParseHTML(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse converted html: %w", err)
	}

	s.index = index
	s.pages = 1
	if s.measure != nil {
		if h := s.measure(); h > 0 {
			s.pages = int(math.Ceil(h / (a4HeightMM * pxPerMM)))
			if s.pages < 1 {
				s.pages = 1
			}
		}
	}
	return nil
}

func (s *HTMLFlowSource) PageCount() int {
	return s.pages
}

func (s *HTMLFlowSource) PageRect(page int) (geometry.Rect, error) {
	if page < 1 || page > s.pages {
		return geometry.Rect{}, fmt.Errorf("page %d out of range [1, %d]", page, s.pages)
	}
	return geometry.Rect{
		Width:  a4WidthMM * pxPerMM,
		Height: a4HeightMM * pxPerMM,
	}, nil
}

// Index exposes the parsed document tree for text-anchor resolution.
// Nil until Load succeeds.
func (s *HTMLFlowSource) Index() anchor.Index {
	if s.index == nil {
		return nil
	}
	return s.index
}

// Render serializes the current tree, markers included, for the
// embedding view.
func (s *HTMLFlowSource) Render(w io.Writer) error {
	if s.index == nil {
		return fmt.Errorf("document not loaded")
	}
	return s.index.Render(w)
}
