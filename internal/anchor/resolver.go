package anchor

import (
	"github.com/google/uuid"

	"anotador/pkg/logger"
)

// Highlight colors per comment kind, matching the evaluation viewer
// palette.
var highlightColors = map[string][2]string{
	"error":      {"#ffebee", "#f44336"},
	"suggestion": {"#e3f2fd", "#2196f3"},
	"comment":    {"#fff9e6", "#ffc107"},
}

// Resolution is the outcome of re-anchoring one snippet.
type Resolution struct {
	Success  bool
	MarkerID string
	// Global is true when the snippet was not found inside its anchor
	// subtree and the whole-document fallback matched instead.
	Global bool
}

// Resolver re-locates saved text selections in a document index and
// wraps them in clickable markers.
//
// Re-running resolution for the same annotation without removing its
// prior marker first will wrap the already-wrapped text again; callers
// reloading a document must strip all markers before walking again.
type Resolver struct {
	index Index

	// onFocus is raised when a marker is activated (the click handler
	// of the browser original).
	onFocus func(annotationID string)
}

// NewResolver builds a resolver over the given document index.
func NewResolver(index Index) *Resolver {
	return &Resolver{index: index}
}

// OnFocus registers the focus-annotation callback.
func (r *Resolver) OnFocus(fn func(annotationID string)) {
	r.onFocus = fn
}

// Highlight locates selectedText in the document and wraps the first
// occurrence in a marker. When anchorElementID is given and resolvable,
// the anchor subtree is searched first; otherwise (or when the snippet
// is not inside it) the whole document is walked and the first match in
// document order wins.
//
// A missing snippet is a non-fatal condition: the annotation stays in
// the side list, unlinked. The document tree is not touched in that
// case.
func (r *Resolver) Highlight(annotationID, selectedText, anchorElementID, kind string) Resolution {
	if selectedText == "" {
		return Resolution{}
	}

	loc, found, global := r.locate(selectedText, anchorElementID)
	if !found {
		logger.Sugar.Warnf("could not resolve text anchor for annotation %s: %q not found", annotationID, snippet(selectedText))
		return Resolution{}
	}

	colors, ok := highlightColors[kind]
	if !ok {
		colors = highlightColors["comment"]
	}

	m := Marker{
		ID:           uuid.NewString(),
		AnnotationID: annotationID,
		Background:   colors[0],
		Border:       colors[1],
	}
	if err := r.index.Wrap(loc, m); err != nil {
		logger.Sugar.Errorf("failed to wrap marker for annotation %s: %v", annotationID, err)
		return Resolution{}
	}
	return Resolution{Success: true, MarkerID: m.ID, Global: global}
}

// locate prefers the anchor subtree and falls back to the full
// document. The third result reports that the fallback was taken; a
// search that never had an anchor to scope to is not a fallback.
func (r *Resolver) locate(selectedText, anchorElementID string) (Location, bool, bool) {
	fellBack := false
	if anchorElementID != "" {
		loc, found, anchorExists := r.index.FindWithin(anchorElementID, selectedText)
		if found {
			return loc, true, false
		}
		if !anchorExists {
			logger.Sugar.Debugf("anchor element %q not found, falling back to full document", anchorElementID)
		}
		fellBack = true
	}
	loc, found := r.index.Find(selectedText)
	return loc, found, found && fellBack
}

// Remove strips a marker from the document. Safe to call for markers
// that were never placed.
func (r *Resolver) Remove(markerID string) bool {
	return r.index.Unwrap(markerID)
}

// Focus routes a marker activation to the registered callback.
func (r *Resolver) Focus(annotationID string) {
	if r.onFocus != nil {
		r.onFocus(annotationID)
	}
}

func snippet(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
