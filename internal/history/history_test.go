package history

import (
	"fmt"
	"testing"

	"xray-annotator/internal/annotation"
	"xray-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(n int) []*annotation.Annotation {
	col := make([]*annotation.Annotation, n)
	for i := range col {
		a := annotation.New(annotation.KindBox,
			geometry.NewPoint2D(0, 0), geometry.NewPoint2D(float64(10+i), 10))
		a.Label = fmt.Sprintf("shape %d", i)
		col[i] = a
	}
	return col
}

func TestUndoRedoRoundTrip(t *testing.T) {
	s := NewStack()

	const n = 5
	snaps := make([][]*annotation.Annotation, n)
	for i := 0; i < n; i++ {
		snaps[i] = snapshot(i + 1)
		s.Push(snaps[i])
	}

	// Undo M then redo M restores the exact pre-undo collection.
	for m := 1; m <= n; m++ {
		for i := 0; i < m; i++ {
			_, ok := s.Undo()
			require.True(t, ok)
		}
		var got []*annotation.Annotation
		for i := 0; i < m; i++ {
			var ok bool
			got, ok = s.Redo()
			require.True(t, ok)
		}
		assert.Equal(t, snaps[n-1], got, "after undo/redo x%d", m)
	}
}

func TestUndoPastBottomIsNoOp(t *testing.T) {
	s := NewStack()
	s.Push(snapshot(1))

	col, ok := s.Undo()
	require.True(t, ok)
	assert.Nil(t, col, "oldest entry is the empty collection")

	_, ok = s.Undo()
	assert.False(t, ok)
	_, ok = s.Undo()
	assert.False(t, ok)
}

func TestRedoPastTopIsNoOp(t *testing.T) {
	s := NewStack()
	s.Push(snapshot(1))
	_, ok := s.Redo()
	assert.False(t, ok)
}

func TestPushAfterUndoDiscardsRedoTail(t *testing.T) {
	s := NewStack()
	s.Push(snapshot(1))
	s.Push(snapshot(2))
	s.Push(snapshot(3))

	_, ok := s.Undo()
	require.True(t, ok)
	_, ok = s.Undo()
	require.True(t, ok)
	require.True(t, s.CanRedo())

	replacement := snapshot(4)
	s.Push(replacement)

	assert.False(t, s.CanRedo())
	_, ok = s.Redo()
	assert.False(t, ok)

	// The new tip is the replacement, not a discarded redo entry.
	col, ok := s.Undo()
	require.True(t, ok)
	assert.Len(t, col, 1)
	col, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, replacement, col)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := NewStack()
	col := snapshot(1)
	s.Push(col)

	// Mutating the caller's slice must not leak into the stored snapshot.
	col[0].Points[1].X = 999

	_, ok := s.Undo()
	require.True(t, ok)
	restored, ok := s.Redo()
	require.True(t, ok)
	assert.Equal(t, 10.0, restored[0].Points[1].X)
}

func TestVersionBumpsOnEveryMutation(t *testing.T) {
	s := NewStack()
	v0 := s.Version()

	s.Push(snapshot(1))
	assert.Greater(t, s.Version(), v0)

	v1 := s.Version()
	_, ok := s.Undo()
	require.True(t, ok)
	assert.Greater(t, s.Version(), v1)

	// Failed undo does not bump.
	v2 := s.Version()
	_, ok = s.Undo()
	require.False(t, ok)
	assert.Equal(t, v2, s.Version())

	s.Reset()
	assert.Greater(t, s.Version(), v2)
}

func TestResetReturnsToSingleEmptyEntry(t *testing.T) {
	s := NewStack()
	s.Push(snapshot(2))
	s.Push(snapshot(3))
	s.Reset()

	assert.Equal(t, 1, s.Len())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}
