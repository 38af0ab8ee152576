// Package annotation holds the user-created marks for one open
// document and syncs them with the remote annotation collection.
package annotation

import (
	"time"

	"github.com/google/uuid"

	"anotador/internal/geometry"
)

// Kind classifies an annotation.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
	KindHighlight Kind = "highlight"
	KindArrow     Kind = "arrow"
	KindComment   Kind = "comment"
	// Correction-workflow kinds used by the DOCX evaluation view.
	KindError      Kind = "error"
	KindSuggestion Kind = "suggestion"
)

// Author identifies who created an annotation.
type Author struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Role string `json:"role" validate:"omitempty,oneof=student teacher coordinator"`
}

// Style is the visual style of a drawn annotation.
type Style struct {
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
}

// TextAnchor locates a text-anchored comment: the page it was made on,
// the id of the block element the selection lived in (best effort, may
// no longer exist after a re-export) and the selected snippet itself.
type TextAnchor struct {
	Page            int    `json:"page"`
	AnchorElementID string `json:"anchor_id,omitempty"`
	SelectedText    string `json:"selected_text"`
}

// Annotation is one user-created mark on a document. Geometry is
// either a normalized rectangle (shape tools) or a text anchor
// (comments); both stay zoom-invariant because pixel coordinates are
// never stored.
type Annotation struct {
	ID         string                   `json:"id" validate:"required"`
	DocumentID string                   `json:"document_id" validate:"required"`
	Kind       Kind                     `json:"type" validate:"required,oneof=rectangle circle text highlight arrow comment error suggestion"`
	Rect       *geometry.NormalizedRect `json:"rect,omitempty"`
	Anchor     *TextAnchor              `json:"anchor,omitempty"`
	Style      Style                    `json:"style"`
	Payload    string                   `json:"payload,omitempty"`
	Author     Author                   `json:"author"`
	CreatedAt  time.Time                `json:"created_at"`
	Resolved   *bool                    `json:"resolved,omitempty"`
}

// New creates an annotation with a fresh client-side id and timestamp.
func New(documentID string, kind Kind, author Author) *Annotation {
	return &Annotation{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Kind:       kind,
		Author:     author,
		CreatedAt:  time.Now().UTC(),
	}
}

// Valid is the defensive save filter, not a schema validator: an
// annotation with its required content missing is silently skipped on
// save rather than rejected with an error.
func (a *Annotation) Valid() bool {
	if a.ID == "" || a.DocumentID == "" || a.CreatedAt.IsZero() {
		return false
	}
	switch a.Kind {
	case KindComment, KindError, KindSuggestion:
		return a.Payload != "" && a.Anchor != nil && a.Anchor.SelectedText != ""
	case KindRectangle, KindCircle, KindText, KindHighlight, KindArrow:
		return a.Rect != nil
	}
	return false
}

// IsTextAnchored reports whether the annotation re-attaches through
// the text-anchor resolver rather than the coordinate mapper.
func (a *Annotation) IsTextAnchored() bool {
	return a.Anchor != nil
}
