// Package app provides application lifecycle management, shared state, and
// events.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"xray-annotator/internal/editor"
	"xray-annotator/internal/imagelayer"
	"xray-annotator/internal/store"
)

// State holds the application state: the open study, its radiograph, the
// annotation editor, and the persistence backend. UI components communicate
// through its events instead of referencing each other.
type State struct {
	mu  sync.RWMutex
	log zerolog.Logger

	// Editor is the annotation engine. It is single-threaded by contract;
	// only the UI event loop touches it.
	Editor *editor.Editor

	// Store persists annotation sets per patient and image.
	Store store.Store

	PatientID string
	Image     *imagelayer.Layer
	Modified  bool

	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventStudyLoaded
	EventStudySaved
	EventAnnotationsChanged
	EventSelectionChanged
	EventToolChanged
	EventModified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates the application state around an editor and a store.
func NewState(log zerolog.Logger, ed *editor.Editor, st store.Store) *State {
	return &State{
		log:       log,
		Editor:    ed,
		Store:     st,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the open study as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	changed := s.Modified != modified
	s.Modified = modified
	s.mu.Unlock()
	if changed {
		s.Emit(EventModified, modified)
	}
}

// SetPatient switches the active patient id. The current image stays open;
// saved annotations for it are looked up under the new patient.
func (s *State) SetPatient(ctx context.Context, id string) error {
	s.mu.Lock()
	s.PatientID = id
	s.mu.Unlock()
	if s.Image == nil {
		return nil
	}
	return s.reloadAnnotations(ctx)
}

// Key identifies the open study in the store. The second return value is
// false until both a patient and an image are set.
func (s *State) Key() (store.Key, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.PatientID == "" || s.Image == nil {
		return store.Key{}, false
	}
	return store.Key{PatientID: s.PatientID, ImageName: s.Image.Name}, true
}

// LoadImage opens a radiograph, resets the editor for it, and pulls any
// previously saved annotations for the active patient.
func (s *State) LoadImage(ctx context.Context, path string) error {
	layer, err := imagelayer.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.Image = layer
	s.mu.Unlock()

	s.Editor.ResetForNewImage()
	s.log.Info().Str("image", layer.Name).
		Int("width", layer.Width()).Int("height", layer.Height()).
		Float64("dpi", layer.DPI).Msg("image loaded")

	if err := s.reloadAnnotations(ctx); err != nil {
		return err
	}

	s.SetModified(false)
	s.Emit(EventImageLoaded, layer)
	return nil
}

// reloadAnnotations replaces the editor collection with the stored set for
// the current study, making it the new undo baseline.
func (s *State) reloadAnnotations(ctx context.Context) error {
	key, ok := s.Key()
	if !ok {
		return nil
	}
	col, err := s.Store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load annotations: %w", err)
	}
	s.Editor.SetAnnotations(col)
	s.log.Debug().Stringer("study", key).Int("count", len(col)).Msg("annotations loaded")
	s.Emit(EventStudyLoaded, key)
	s.Emit(EventAnnotationsChanged, nil)
	return nil
}

// SaveStudy persists the current annotation set.
func (s *State) SaveStudy(ctx context.Context) error {
	key, ok := s.Key()
	if !ok {
		return fmt.Errorf("no open study to save")
	}
	if err := s.Store.Save(ctx, key, s.Editor.Annotations()); err != nil {
		return fmt.Errorf("save annotations: %w", err)
	}
	s.log.Info().Stringer("study", key).
		Int("count", len(s.Editor.Annotations())).Msg("study saved")
	s.SetModified(false)
	s.Emit(EventStudySaved, key)
	return nil
}

// RevertStudy discards unsaved edits by reloading the stored set.
func (s *State) RevertStudy(ctx context.Context) error {
	if err := s.reloadAnnotations(ctx); err != nil {
		return err
	}
	s.SetModified(false)
	return nil
}
