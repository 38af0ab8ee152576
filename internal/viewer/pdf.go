package viewer

import (
	"bytes"
	"context"
	"fmt"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"anotador/internal/geometry"
)

// FileFetcher retrieves raw document bytes from the API's upload
// store. *project.Client implements it.
type FileFetcher interface {
	FetchFile(ctx context.Context, path string) ([]byte, error)
}

// PDFSource serves page geometry from a PDF fetched off the API. Page
// rectangles come from each page's media box, so mixed-size documents
// keep per-page coordinates correct.
type PDFSource struct {
	fetch FileFetcher
	path  string

	pages []geometry.Rect
}

var _ Source = (*PDFSource)(nil)

// NewPDFSource builds a source for the document stored at path.
func NewPDFSource(fetch FileFetcher, path string) *PDFSource {
	return &PDFSource{fetch: fetch, path: path}
}

func (s *PDFSource) Load(ctx context.Context) error {
	data, err := s.fetch.FetchFile(ctx, s.path)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", s.path, err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("open pdf %s: %w", s.path, err)
	}

	n, err := pagetree.NumPages(r)
	if err != nil {
		return fmt.Errorf("page count of %s: %w", s.path, err)
	}

	pages := make([]geometry.Rect, 0, n)
	for i := 0; i < n; i++ {
		_, dict, err := pagetree.GetPage(r, i)
		if err != nil {
			return fmt.Errorf("page %d of %s: %w", i+1, s.path, err)
		}
		box, err := pdf.GetRectangle(r, dict["MediaBox"])
		if err != nil {
			return fmt.Errorf("media box of page %d: %w", i+1, err)
		}
		if box == nil {
			return fmt.Errorf("page %d of %s has no media box", i+1, s.path)
		}
		pages = append(pages, geometry.Rect{
			Width:  box.URx - box.LLx,
			Height: box.URy - box.LLy,
		})
	}

	s.pages = pages
	return nil
}

func (s *PDFSource) PageCount() int {
	return len(s.pages)
}

func (s *PDFSource) PageRect(page int) (geometry.Rect, error) {
	if page < 1 || page > len(s.pages) {
		return geometry.Rect{}, fmt.Errorf("page %d out of range [1, %d]", page, len(s.pages))
	}
	return s.pages[page-1], nil
}
