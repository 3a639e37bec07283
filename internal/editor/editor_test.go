package editor

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"xray-annotator/internal/annotation"
	"xray-annotator/internal/view"
	"xray-annotator/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D {
	return geometry.Point2D{X: x, Y: y}
}

// newEditor returns an editor at 1:1 zoom with no pan, so screen and image
// coordinates coincide in tests unless a test changes the viewport.
func newEditor() *Editor {
	return New(DefaultConfig(), view.NewViewport(), zerolog.Nop())
}

// drag performs a full pointer-down/move/up gesture.
func drag(e *Editor, points ...geometry.Point2D) {
	e.PointerDown(points[0])
	for _, p := range points[1:] {
		e.PointerMove(p)
	}
	e.PointerUp(points[len(points)-1])
}

func TestDrawBoxCommitsAndSelects(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(30, 20), pt(50, 40))

	require.Len(t, e.Annotations(), 1)
	a := e.Annotations()[0]
	assert.Equal(t, annotation.KindBox, a.Kind)
	assert.Equal(t, []geometry.Point2D{pt(10, 10), pt(50, 40)}, a.Points)
	w, h := a.Size()
	assert.Equal(t, 40.0, w)
	assert.Equal(t, 30.0, h)

	// Finished shapes are auto-selected and the tool returns to select.
	assert.Equal(t, a.ID, e.SelectedID())
	assert.Equal(t, ToolSelect, e.Tool())
	assert.True(t, e.CanUndo())
}

func TestDegenerateDrawIsDiscarded(t *testing.T) {
	e := newEditor()
	for _, tool := range []Tool{ToolBox, ToolCircle, ToolEllipse, ToolLine, ToolRuler, ToolFreehand} {
		e.SetTool(tool)
		drag(e, pt(25, 25))
		assert.Empty(t, e.Annotations(), "tool %s", tool)
		assert.False(t, e.CanUndo(), "tool %s", tool)
	}
}

func TestMarkerCommitsOnPress(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolMarker)
	e.PointerDown(pt(100, 50))
	e.PointerUp(pt(100, 50))

	require.Len(t, e.Annotations(), 1)
	a := e.Annotations()[0]
	assert.Equal(t, annotation.KindMarker, a.Kind)
	assert.Equal(t, []geometry.Point2D{pt(100, 50)}, a.Points)
	assert.Equal(t, a.ID, e.SelectedID())
	assert.Equal(t, ToolSelect, e.Tool())
}

func TestFreehandAccumulatesPoints(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolFreehand)
	drag(e, pt(0, 0), pt(5, 2), pt(10, 4), pt(15, 2))

	require.Len(t, e.Annotations(), 1)
	a := e.Annotations()[0]
	assert.Equal(t, annotation.KindFreehand, a.Kind)
	assert.GreaterOrEqual(t, len(a.Points), 4)
	assert.Equal(t, pt(0, 0), a.Points[0])
}

func TestAngleThreeStepPlacement(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolAngle)

	// First press places two coincident points.
	e.PointerDown(pt(10, 0))
	e.PointerUp(pt(10, 0))
	require.NotNil(t, e.Scene().Live)
	assert.Len(t, e.Scene().Live.Points, 2)
	assert.True(t, e.PlacingActive())
	assert.Empty(t, e.Annotations())

	// Second press fixes the vertex and starts the second ray.
	e.PointerMove(pt(0, 0))
	e.PointerDown(pt(0, 0))
	e.PointerUp(pt(0, 0))
	assert.Len(t, e.Scene().Live.Points, 3)
	assert.Empty(t, e.Annotations())

	// Third press commits.
	e.PointerMove(pt(0, 10))
	e.PointerDown(pt(0, 10))
	e.PointerUp(pt(0, 10))

	require.Len(t, e.Annotations(), 1)
	a := e.Annotations()[0]
	assert.Equal(t, []geometry.Point2D{pt(10, 0), pt(0, 0), pt(0, 10)}, a.Points)
	assert.True(t, scalar.EqualWithinAbs(a.AngleDegrees(), 90, 1e-9))
	assert.False(t, e.PlacingActive())
	assert.Equal(t, ToolSelect, e.Tool())
}

func TestDragTranslatesShape(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))

	// Drag from inside the (already selected) box.
	drag(e, pt(30, 25), pt(40, 30), pt(45, 35))

	a := e.Annotations()[0]
	assert.Equal(t, []geometry.Point2D{pt(25, 20), pt(65, 50)}, a.Points)
}

func TestGesturePushesSingleHistoryEntry(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))

	// Many intermediate moves, one history entry.
	drag(e, pt(30, 25), pt(31, 25), pt(32, 26), pt(35, 28), pt(40, 30))

	e.Undo()
	assert.Equal(t, []geometry.Point2D{pt(10, 10), pt(50, 40)}, e.Annotations()[0].Points)
	e.Undo()
	assert.Empty(t, e.Annotations())
	assert.False(t, e.CanUndo())
}

func TestLockedShapeIgnoresDragAndEraser(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	id := e.SelectedID()
	e.SetLocked(id, true)

	before := e.Annotations()[0].Clone()

	// Drag attempt: selection happens, movement does not.
	drag(e, pt(30, 25), pt(60, 60), pt(80, 80))
	assert.Equal(t, before.Points, e.Annotations()[0].Points)

	// Eraser passes over it without effect.
	e.SetTool(ToolEraser)
	drag(e, pt(30, 25))
	require.Len(t, e.Annotations(), 1)

	// Explicit delete bypasses the lock.
	e.Select(id)
	e.DeleteSelected()
	assert.Empty(t, e.Annotations())
}

func TestLockedShapeHasNoResizeHandles(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	assert.Len(t, e.Scene().Handles, 8)

	e.SetLocked(e.SelectedID(), true)
	assert.Empty(t, e.Scene().Handles)
}

func TestEraserRemovesUnlockedInCollectionOrder(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	first := e.Annotations()[0].ID
	e.SetTool(ToolBox)
	drag(e, pt(20, 15), pt(45, 35))
	require.Len(t, e.Annotations(), 2)

	// A motionless press over the stack removes only the first hit in
	// collection order.
	e.SetTool(ToolEraser)
	drag(e, pt(30, 25))
	require.Len(t, e.Annotations(), 1)
	assert.NotEqual(t, first, e.Annotations()[0].ID)

	// A sweep starting on empty space picks up the rest as it moves.
	drag(e, pt(200, 200), pt(30, 25))
	assert.Empty(t, e.Annotations())

	// Each erase gesture is one history entry.
	e.Undo()
	assert.Len(t, e.Annotations(), 1)
	e.Undo()
	assert.Len(t, e.Annotations(), 2)
}

func TestResizeDampingAndAnchor(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))

	// Grab the south-east corner handle and pull to (60, 50). With 0.7
	// damping the dragged corner lands at start + 0.7*delta = (57, 47).
	drag(e, pt(50, 40), pt(60, 50))

	a := e.Annotations()[0]
	assert.Equal(t, pt(10, 10), a.Points[0], "anchor corner held fixed")
	assert.True(t, scalar.EqualWithinAbs(a.Points[1].X, 57, 1e-9))
	assert.True(t, scalar.EqualWithinAbs(a.Points[1].Y, 47, 1e-9))
}

func TestResizeAnchorInvarianceAllHandles(t *testing.T) {
	rect := geometry.NewRect(10, 10, 40, 30)
	for _, h := range handlePositions(rect) {
		e := newEditor()
		e.SetTool(ToolBox)
		drag(e, pt(10, 10), pt(50, 40))

		anchor := resizeAnchor(rect, h.ID)
		drag(e, h.Pos, h.Pos.Add(pt(7, -5)), h.Pos.Add(pt(13, 9)))

		a := e.Annotations()[0]
		newRect := geometry.RectFromCorners(a.Points[0], a.Points[1])
		corners := []geometry.Point2D{
			newRect.TopLeft(), newRect.TopRight(),
			newRect.BottomLeft(), newRect.BottomRight(),
		}
		assert.Contains(t, corners, anchor, "handle %d", h.ID)
	}
}

func TestEdgeHandlePreservesUntouchedAxis(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))

	// North edge midpoint is (30, 10); drag it upward and sideways. The
	// horizontal extent must survive the sideways component.
	drag(e, pt(30, 10), pt(45, 0))

	a := e.Annotations()[0]
	r := geometry.RectFromCorners(a.Points[0], a.Points[1])
	assert.Equal(t, 10.0, r.X)
	assert.Equal(t, 40.0, r.Width)
	assert.Equal(t, 40.0, r.Y+r.Height, "bottom edge held fixed")
	assert.Less(t, r.Y, 10.0, "top edge moved up")
}

func TestPanGestureIsNotHistorized(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))

	// Select-tool press on empty space clears selection and pans.
	drag(e, pt(300, 300), pt(320, 310), pt(340, 330))

	assert.Equal(t, "", e.SelectedID())
	assert.Equal(t, pt(40, 30), e.Viewport().Pan)

	// Only the draw is undoable.
	e.Undo()
	assert.Empty(t, e.Annotations())
	assert.False(t, e.CanUndo())
}

func TestPanHoldOverridesShapeHit(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	before := e.Annotations()[0].Clone()

	e.SetPanHold(true)
	drag(e, pt(30, 25), pt(50, 45))
	e.SetPanHold(false)

	assert.Equal(t, before.Points, e.Annotations()[0].Points)
	assert.Equal(t, pt(20, 20), e.Viewport().Pan)
}

func TestTextPlacementMinimumSize(t *testing.T) {
	e := newEditor()

	// Too small: discarded silently, no pending entry.
	e.SetTool(ToolText)
	drag(e, pt(10, 10), pt(25, 20))
	assert.Nil(t, e.PendingText())
	assert.Empty(t, e.Annotations())

	// Large enough: pending until text is confirmed.
	e.SetTool(ToolText)
	drag(e, pt(10, 10), pt(60, 40))
	require.NotNil(t, e.PendingText())
	assert.Empty(t, e.Annotations())

	// Empty text drops the placement.
	e.ConfirmPendingText("")
	assert.Empty(t, e.Annotations())

	// Non-empty text commits.
	e.SetTool(ToolText)
	drag(e, pt(10, 10), pt(60, 40))
	e.ConfirmPendingText("opacity, left lobe")
	require.Len(t, e.Annotations(), 1)
	a := e.Annotations()[0]
	assert.Equal(t, annotation.KindText, a.Kind)
	assert.Equal(t, "opacity, left lobe", a.Text)
}

func TestUndoRedoRestoresExactCollection(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	e.SetTool(ToolLine)
	drag(e, pt(0, 0), pt(3, 4))
	e.SetTool(ToolMarker)
	e.PointerDown(pt(70, 70))
	e.PointerUp(pt(70, 70))

	want := make([]*annotation.Annotation, len(e.Annotations()))
	for i, a := range e.Annotations() {
		want[i] = a.Clone()
	}

	for i := 0; i < 3; i++ {
		e.Undo()
	}
	assert.Empty(t, e.Annotations())
	for i := 0; i < 3; i++ {
		e.Redo()
	}
	assert.Equal(t, want, e.Annotations())

	// A new commit after an undo discards the redo tail.
	e.Undo()
	e.SetTool(ToolRuler)
	drag(e, pt(1, 1), pt(9, 9))
	assert.False(t, e.CanRedo())
	e.Redo()
	assert.Len(t, e.Annotations(), 3)
}

func TestUndoRedoPastBoundsAreNoOps(t *testing.T) {
	e := newEditor()
	e.Undo()
	e.Redo()
	assert.Empty(t, e.Annotations())

	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	e.Redo()
	assert.Len(t, e.Annotations(), 1)
}

func TestWheelZoomKeepsPointerFixedAndScalesHits(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))

	pointer := pt(30, 25)
	before := e.Viewport().ToImage(pointer)
	for i := 0; i < 4; i++ {
		e.Wheel(pointer, 1)
	}
	after := e.Viewport().ToImage(pointer)
	assert.True(t, scalar.EqualWithinAbs(after.X, before.X, 1e-9))
	assert.True(t, scalar.EqualWithinAbs(after.Y, before.Y, 1e-9))

	// The shape under the pointer is still selectable after zooming.
	e.Select("")
	e.PointerDown(pointer)
	e.PointerUp(pointer)
	assert.Equal(t, e.Annotations()[0].ID, e.SelectedID())
}

func TestHandleKeyToolShortcuts(t *testing.T) {
	e := newEditor()
	keys := map[rune]Tool{
		's': ToolSelect, 'm': ToolMarker, 'b': ToolBox, 'c': ToolCircle,
		'e': ToolEllipse, 'l': ToolLine, 'f': ToolFreehand, 'r': ToolRuler,
		'a': ToolAngle, 't': ToolText, 'x': ToolEraser,
	}
	for r, want := range keys {
		assert.True(t, e.HandleKey(r, pt(0, 0)))
		assert.Equal(t, want, e.Tool(), "key %c", r)
	}

	assert.False(t, e.HandleKey('q', pt(0, 0)))

	zoom := e.Viewport().Zoom
	assert.True(t, e.HandleKey('+', pt(0, 0)))
	assert.Greater(t, e.Viewport().Zoom, zoom)
	assert.True(t, e.HandleKey('-', pt(0, 0)))
}

func TestResetForNewImage(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))

	e.ResetForNewImage()
	assert.Empty(t, e.Annotations())
	assert.False(t, e.CanUndo())
	assert.False(t, e.CanRedo())
	assert.Equal(t, "", e.SelectedID())
}

func TestSceneBadgeAndLive(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	id := e.SelectedID()

	assert.Nil(t, e.Scene().Badge, "no badge without a label")

	e.SetLabel(id, "fracture")
	badge := e.Scene().Badge
	require.NotNil(t, badge)
	assert.Equal(t, "fracture", badge.Text)
	assert.Equal(t, pt(50, 10), badge.Pos, "badge sits at bounds top-right")

	// Live shape is exposed mid-gesture.
	e.SetTool(ToolCircle)
	e.PointerDown(pt(100, 100))
	e.PointerMove(pt(120, 120))
	require.NotNil(t, e.Scene().Live)
	assert.Equal(t, annotation.KindCircle, e.Scene().Live.Kind)
	e.PointerUp(pt(120, 120))
	assert.Nil(t, e.Scene().Live)
}

func TestSelectionPrefersTopmostShape(t *testing.T) {
	e := newEditor()
	e.SetTool(ToolBox)
	drag(e, pt(10, 10), pt(50, 40))
	first := e.Annotations()[0].ID
	e.SetTool(ToolBox)
	drag(e, pt(20, 15), pt(60, 45))
	second := e.Annotations()[1].ID

	// Clear selection first so the press cannot grab a resize handle.
	e.Select("")
	e.PointerDown(pt(60, 30))
	e.PointerUp(pt(60, 30))
	assert.Equal(t, second, e.SelectedID())

	e.Select("")
	e.PointerDown(pt(11, 11))
	e.PointerUp(pt(11, 11))
	assert.Equal(t, first, e.SelectedID())
}
