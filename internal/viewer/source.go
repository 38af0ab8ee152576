// Package viewer drives one open document: loading, pagination, zoom,
// tool selection, and re-attachment of saved annotations.
//
// The document format is abstracted behind the Source interface so a
// single shell serves both PDF-paged and DOCX-to-HTML documents
// without duplicating the coordinate math.
package viewer

import (
	"context"

	"anotador/internal/anchor"
	"anotador/internal/geometry"
)

// Source is the pluggable document strategy behind the shell.
type Source interface {
	// Load fetches and prepares the document. It must be called before
	// PageCount or PageRect.
	Load(ctx context.Context) error

	// PageCount reports the number of pages in the loaded document.
	PageCount() int

	// PageRect returns the unscaled pixel rectangle of the given page
	// (1-based). Annotation coordinates are normalized against it.
	PageRect(page int) (geometry.Rect, error)
}

// Anchorable is implemented by sources whose content is a text tree.
// The shell uses the index to resolve text-anchored comments; purely
// page-based sources (PDF) do not implement it.
type Anchorable interface {
	Index() anchor.Index
}
