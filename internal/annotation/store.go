package annotation

import (
	"context"
	"errors"
	"sync"

	"anotador/pkg/logger"
)

// ErrNothingToSave is returned when every annotation in the store is
// filtered out by the empty-field guard. The remote set is left
// untouched: an empty save is never allowed to wipe prior server
// state.
var ErrNothingToSave = errors.New("no valid annotations to save")

// Remote is the persistence collaborator. The remote collection only
// supports full replacement, not partial updates.
type Remote interface {
	Load(ctx context.Context, documentID string) ([]Annotation, error)
	Save(ctx context.Context, documentID string, annotations []Annotation) error
}

// Store is the in-memory ordered annotation collection for one open
// document. It is owned by a single viewer instance; methods are safe
// for the viewer goroutine plus the notifier callback goroutine.
type Store struct {
	mu    sync.Mutex
	items []Annotation

	remote Remote

	// saveMu serializes SaveAll calls so two rapid saves cannot race
	// and let a slow earlier save overwrite a faster later one.
	saveMu sync.Mutex
}

// NewStore creates an empty store backed by the given remote
// collection.
func NewStore(remote Remote) *Store {
	return &Store{remote: remote}
}

// Add appends an annotation to the ordered list.
func (s *Store) Add(a Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, a)
}

// Remove deletes the annotation with the given id from memory.
// Returns false if no such annotation exists. The caller decides
// whether to follow up with an authoritative SaveAll.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the annotation with the given id.
func (s *Store) Get(id string) (Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return Annotation{}, false
}

// List returns a copy of the current annotations in insertion order.
func (s *Store) List() []Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Annotation, len(s.items))
	copy(out, s.items)
	return out
}

// Len reports the number of annotations, valid or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SaveAll submits every valid annotation as a full replacement of the
// remote set for the document. Invalid annotations are filtered out
// and logged; if nothing survives the filter, ErrNothingToSave is
// returned and no request is made.
//
// Saves are serialized: a second SaveAll does not start until the
// first one resolves. On failure the local state is kept unchanged so
// the user can retry.
func (s *Store) SaveAll(ctx context.Context, documentID string) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	valid := make([]Annotation, 0, len(s.items))
	for _, a := range s.items {
		if a.Valid() {
			valid = append(valid, a)
		} else {
			logger.Sugar.Warnf("skipping invalid annotation %s on save", a.ID)
		}
	}
	s.mu.Unlock()

	if len(valid) == 0 {
		return ErrNothingToSave
	}

	if err := s.remote.Save(ctx, documentID, valid); err != nil {
		logger.Sugar.Errorf("failed to save annotations for document %s: %v", documentID, err)
		return err
	}
	return nil
}

// RemoveAndSave deletes an annotation and pushes the remaining set as
// an authoritative replacement. Unlike SaveAll, deleting the last
// annotation is allowed to submit an empty set: removal is an explicit
// author action, not an accidental wipe.
func (s *Store) RemoveAndSave(ctx context.Context, documentID, id string) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	removed := false
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			removed = true
			break
		}
	}
	remaining := make([]Annotation, 0, len(s.items))
	for _, a := range s.items {
		if a.Valid() {
			remaining = append(remaining, a)
		}
	}
	s.mu.Unlock()

	if !removed {
		return errors.New("annotation not found: " + id)
	}

	if err := s.remote.Save(ctx, documentID, remaining); err != nil {
		logger.Sugar.Errorf("failed to persist removal of annotation %s: %v", id, err)
		return err
	}
	return nil
}

// LoadAll replaces the local state wholesale with the remote set.
// Unsaved local edits are lost on a successful load; on failure the
// prior state is kept.
func (s *Store) LoadAll(ctx context.Context, documentID string) error {
	loaded, err := s.remote.Load(ctx, documentID)
	if err != nil {
		logger.Sugar.Errorf("failed to load annotations for document %s: %v", documentID, err)
		return err
	}

	s.mu.Lock()
	s.items = loaded
	s.mu.Unlock()
	return nil
}
