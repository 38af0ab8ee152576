package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"anotador/internal/anchor"
	"anotador/internal/annotation"
	"anotador/internal/geometry"
	"anotador/internal/shape"
	"anotador/pkg/logger"
	"anotador/socket"
)

// State is the lifecycle phase of one open document.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Session is the transient state of one open document in one viewer
// instance. It is owned by the shell and never persisted.
type Session struct {
	DocumentID  string
	CurrentPage int
	TotalPages  int
	ZoomPercent int
	ActiveTool  shape.Tool
	ActiveColor string
}

// Options bound the zoom range. Zero values fall back to the 50–200
// step 10 defaults.
type Options struct {
	ZoomMin  int
	ZoomMax  int
	ZoomStep int
}

func (o Options) withDefaults() Options {
	if o.ZoomMin == 0 {
		o.ZoomMin = 50
	}
	if o.ZoomMax == 0 {
		o.ZoomMax = 200
	}
	if o.ZoomStep == 0 {
		o.ZoomStep = 10
	}
	return o
}

// Shell orchestrates one open document: loading, pagination, zoom,
// tool selection, and the wiring between pointer/selection events and
// the annotation components.
//
// Pointer positions arrive in zoomed screen pixels; stored coordinates
// are normalized against the unscaled page rectangle, so they survive
// zoom changes.
type Shell struct {
	mu sync.Mutex

	documentID string
	source     Source
	store      *annotation.Store
	author     annotation.Author
	opts       Options

	state   State
	lastErr error
	session Session

	// drawing gates pointer routing: exactly one of drawing capture or
	// native text selection is active at a time.
	drawing bool

	// resolver is nil for sources without text content (PDF).
	resolver *anchor.Resolver
	onFocus  func(annotationID string)

	// markers maps annotation id to its current marker, so reloads can
	// strip every prior marker before walking the tree again.
	markers map[string]string

	closed bool
}

// NewShell wires a shell over a document source and its annotation
// store. Call Open to load the document.
func NewShell(documentID string, src Source, store *annotation.Store, author annotation.Author, opts Options) *Shell {
	return &Shell{
		documentID: documentID,
		source:     src,
		store:      store,
		author:     author,
		opts:       opts.withDefaults(),
		state:      StateLoading,
		session: Session{
			DocumentID:  documentID,
			ZoomPercent: 100,
			ActiveTool:  shape.ToolSelect,
			ActiveColor: "#f44336",
		},
		markers: make(map[string]string),
	}
}

// Open loads the document and re-attaches saved annotations. On
// failure the shell lands in the error state; retry is manual, through
// Reload.
func (s *Shell) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("viewer is closed")
	}
	s.state = StateLoading
	s.lastErr = nil
	s.mu.Unlock()

	if err := s.source.Load(ctx); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("viewer is closed")
	}
	s.session.TotalPages = s.source.PageCount()
	s.session.CurrentPage = 1
	s.resolver = nil
	if a, ok := s.source.(Anchorable); ok {
		if ix := a.Index(); ix != nil {
			s.resolver = anchor.NewResolver(ix)
			if s.onFocus != nil {
				s.resolver.OnFocus(s.onFocus)
			}
		}
	}
	s.mu.Unlock()

	// The document is usable even when its annotations fail to load;
	// the user just sees an empty overlay and can retry.
	if err := s.store.LoadAll(ctx, s.documentID); err != nil {
		logger.Sugar.Errorf("failed to load annotations for %s: %v", s.documentID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("viewer is closed")
	}
	s.reattachLocked()
	s.state = StateReady
	return nil
}

// Reload re-runs the full load. Unsaved annotations are dropped: the
// store is replaced wholesale with the remote set.
func (s *Shell) Reload(ctx context.Context) error {
	return s.Open(ctx)
}

func (s *Shell) fail(err error) {
	logger.Sugar.Errorf("document %s failed to load: %v", s.documentID, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state = StateError
	s.lastErr = err
}

// reattachLocked strips every prior marker and resolves the stored
// text anchors again. Rect annotations need no tree mutation; their
// pixels are recomputed per render through PixelRect.
func (s *Shell) reattachLocked() {
	if s.resolver != nil {
		for _, markerID := range s.markers {
			s.resolver.Remove(markerID)
		}
	}
	s.markers = make(map[string]string)

	if s.resolver == nil {
		return
	}
	for _, a := range s.store.List() {
		if !a.IsTextAnchored() {
			continue
		}
		res := s.resolver.Highlight(a.ID, a.Anchor.SelectedText, a.Anchor.AnchorElementID, string(a.Kind))
		if res.Success {
			s.markers[a.ID] = res.MarkerID
		}
	}
}

// State reports the current lifecycle phase.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the load error behind the error state, if any.
func (s *Shell) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Session returns a copy of the current session state.
func (s *Shell) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// SetPage flips to the given page (1-based). In-memory annotations are
// kept; only a full Reload drops them.
func (s *Shell) SetPage(page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return errors.New("document not ready")
	}
	if page < 1 || page > s.session.TotalPages {
		return fmt.Errorf("page %d out of range [1, %d]", page, s.session.TotalPages)
	}
	s.session.CurrentPage = page
	return nil
}

// SetZoom clamps the requested zoom to the configured range and
// applies it. Returns the zoom actually in effect.
func (s *Shell) SetZoom(percent int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if percent < s.opts.ZoomMin {
		percent = s.opts.ZoomMin
	}
	if percent > s.opts.ZoomMax {
		percent = s.opts.ZoomMax
	}
	s.session.ZoomPercent = percent
	return percent
}

// ZoomIn steps the zoom up.
func (s *Shell) ZoomIn() int {
	s.mu.Lock()
	step := s.session.ZoomPercent + s.opts.ZoomStep
	s.mu.Unlock()
	return s.SetZoom(step)
}

// ZoomOut steps the zoom down.
func (s *Shell) ZoomOut() int {
	s.mu.Lock()
	step := s.session.ZoomPercent - s.opts.ZoomStep
	s.mu.Unlock()
	return s.SetZoom(step)
}

// SetTool switches the active tool. Selecting any drawing tool turns
// drawing capture on and native text selection off; the select tool
// does the opposite. Existing annotations are never touched.
func (s *Shell) SetTool(t shape.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.ActiveTool = t
	s.drawing = t != shape.ToolSelect
}

// SetColor changes the color applied to newly created shapes.
func (s *Shell) SetColor(hex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.ActiveColor = hex
}

// TextSelectionActive reports whether pointer events pass through to
// native text selection instead of the drawing layer.
func (s *Shell) TextSelectionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.drawing
}

func kindForTool(t shape.Tool) (annotation.Kind, bool) {
	switch t {
	case shape.ToolRectangle:
		return annotation.KindRectangle, true
	case shape.ToolCircle:
		return annotation.KindCircle, true
	case shape.ToolText:
		return annotation.KindText, true
	case shape.ToolHighlight:
		return annotation.KindHighlight, true
	case shape.ToolArrow:
		return annotation.KindArrow, true
	}
	return "", false
}

// AddShapeAt creates a shape for the active tool at the given pointer
// position (zoomed screen pixels) and stores it with normalized
// coordinates. The returned shape carries the render-time geometry.
func (s *Shell) AddShapeAt(p geometry.Point) (*annotation.Annotation, *shape.Shape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, nil, errors.New("document not ready")
	}
	if !s.drawing {
		return nil, nil, errors.New("no drawing tool active")
	}
	kind, ok := kindForTool(s.session.ActiveTool)
	if !ok {
		return nil, nil, fmt.Errorf("tool %q does not create shapes", s.session.ActiveTool)
	}

	sh, err := shape.New(s.session.ActiveTool, s.session.ActiveColor, p)
	if err != nil {
		return nil, nil, err
	}
	container, err := s.source.PageRect(s.session.CurrentPage)
	if err != nil {
		return nil, nil, err
	}

	// Divide the zoom out of the measured bounds; the page rect is
	// already unscaled. Both sides of the conversion must agree.
	bounds := sh.Bounds().Unscaled(s.session.ZoomPercent)
	n := geometry.ToNormalized(bounds, container)

	a := annotation.New(s.documentID, kind, s.author)
	a.Rect = &n
	a.Style = annotation.Style{Color: s.session.ActiveColor, StrokeWidth: 2}
	s.store.Add(*a)
	return a, sh, nil
}

// CreateComment anchors a comment to the given text selection. The
// anchor element id is passed explicitly by the caller that observed
// the selection; there is no ambient channel between selection and
// creation. Resolution failure is non-fatal: the comment stays in the
// store, unlinked.
func (s *Shell) CreateComment(selectedText, anchorID, body string, kind annotation.Kind) (*annotation.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, errors.New("document not ready")
	}
	if s.drawing {
		return nil, errors.New("text selection is off while a drawing tool is active")
	}
	if s.resolver == nil {
		return nil, errors.New("document has no text content to anchor to")
	}
	switch kind {
	case annotation.KindComment, annotation.KindError, annotation.KindSuggestion:
	default:
		return nil, fmt.Errorf("kind %q is not a comment kind", kind)
	}
	if selectedText == "" {
		return nil, errors.New("empty text selection")
	}
	if body == "" {
		return nil, errors.New("empty comment")
	}

	a := annotation.New(s.documentID, kind, s.author)
	a.Anchor = &annotation.TextAnchor{
		Page:            s.session.CurrentPage,
		AnchorElementID: anchorID,
		SelectedText:    selectedText,
	}
	a.Payload = body
	s.store.Add(*a)

	if res := s.resolver.Highlight(a.ID, selectedText, anchorID, string(kind)); res.Success {
		s.markers[a.ID] = res.MarkerID
	}
	return a, nil
}

// PixelRect maps an annotation's normalized rectangle to screen pixels
// for the current page and zoom.
func (s *Shell) PixelRect(a *annotation.Annotation) (geometry.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Rect == nil {
		return geometry.Rect{}, errors.New("annotation has no rectangle")
	}
	container, err := s.source.PageRect(s.session.CurrentPage)
	if err != nil {
		return geometry.Rect{}, err
	}
	return geometry.ToPixels(*a.Rect, container).Scaled(s.session.ZoomPercent), nil
}

// Annotations lists the current in-memory set.
func (s *Shell) Annotations() []annotation.Annotation {
	return s.store.List()
}

// Save pushes the full current annotation set as a replacement of the
// remote set. annotation.ErrNothingToSave is returned when the
// empty-field guard filters everything out.
func (s *Shell) Save(ctx context.Context) error {
	return s.store.SaveAll(ctx, s.documentID)
}

// DeleteAnnotation removes one annotation, strips its marker, and
// persists the remaining set.
func (s *Shell) DeleteAnnotation(ctx context.Context, id string) error {
	s.mu.Lock()
	if markerID, ok := s.markers[id]; ok {
		s.resolver.Remove(markerID)
		delete(s.markers, id)
	}
	s.mu.Unlock()
	return s.store.RemoveAndSave(ctx, s.documentID, id)
}

// OnFocus registers the callback raised when a text marker is
// activated.
func (s *Shell) OnFocus(fn func(annotationID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFocus = fn
	if s.resolver != nil {
		s.resolver.OnFocus(fn)
	}
}

// BindNotifier refreshes the annotation overlay whenever a remote
// change notification arrives. The handler runs on the notifier
// goroutine.
func (s *Shell) BindNotifier(n *socket.Notifier) {
	n.On(socket.AnnotationChangedType, func(socket.Envelope) {
		s.refreshAnnotations(context.Background())
	})
}

func (s *Shell) refreshAnnotations(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.state != StateReady {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.store.LoadAll(ctx, s.documentID); err != nil {
		logger.Sugar.Errorf("failed to refresh annotations for %s: %v", s.documentID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.reattachLocked()
}

// Close marks the viewer as disposed. Late callbacks from in-flight
// requests or the notifier become no-ops instead of mutating a dead
// view.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
