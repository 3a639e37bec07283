// Package history provides linear undo/redo over snapshots of the
// annotation collection.
package history

import (
	"xray-annotator/internal/annotation"
)

// Stack is an ordered sequence of full collection snapshots plus a current
// index. Entries beyond the index are discarded on the next push. Snapshots
// are deep clones; callers may freely mutate what they pass in or get back.
type Stack struct {
	entries [][]*annotation.Annotation
	index   int
	version int
}

// NewStack returns a stack holding a single empty snapshot.
func NewStack() *Stack {
	return &Stack{entries: [][]*annotation.Annotation{nil}}
}

// Push records a new snapshot after the current index, discarding any redo
// entries beyond it.
func (s *Stack) Push(collection []*annotation.Annotation) {
	s.entries = append(s.entries[:s.index+1], cloneCollection(collection))
	s.index = len(s.entries) - 1
	s.version++
}

// Undo steps back one snapshot. The second return value is false when
// already at the oldest entry.
func (s *Stack) Undo() ([]*annotation.Annotation, bool) {
	if s.index == 0 {
		return nil, false
	}
	s.index--
	s.version++
	return cloneCollection(s.entries[s.index]), true
}

// Redo steps forward one snapshot. The second return value is false when
// already at the newest entry.
func (s *Stack) Redo() ([]*annotation.Annotation, bool) {
	if s.index >= len(s.entries)-1 {
		return nil, false
	}
	s.index++
	s.version++
	return cloneCollection(s.entries[s.index]), true
}

// CanUndo reports whether an older snapshot exists.
func (s *Stack) CanUndo() bool {
	return s.index > 0
}

// CanRedo reports whether a newer snapshot exists.
func (s *Stack) CanRedo() bool {
	return s.index < len(s.entries)-1
}

// Reset discards all snapshots and returns to a single empty entry. Called
// when a new image is loaded.
func (s *Stack) Reset() {
	s.entries = [][]*annotation.Annotation{nil}
	s.index = 0
	s.version++
}

// Len returns the number of stored snapshots.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Version is a counter bumped by every mutating call. Observers compare it
// to a cached value to notice that the collection history moved.
func (s *Stack) Version() int {
	return s.version
}

func cloneCollection(collection []*annotation.Annotation) []*annotation.Annotation {
	if collection == nil {
		return nil
	}
	out := make([]*annotation.Annotation, len(collection))
	for i, a := range collection {
		out[i] = a.Clone()
	}
	return out
}
