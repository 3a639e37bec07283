package editor

import (
	"xray-annotator/internal/annotation"
	"xray-annotator/internal/view"
	"xray-annotator/pkg/geometry"
)

// gestureState enumerates the interaction states. The machine starts Idle
// and returns to Idle after every completed gesture.
type gestureState int

const (
	stateIdle gestureState = iota
	statePanning
	stateDrawing
	statePlacing // multi-step angle placement
	stateDragging
	stateResizing
	stateErasing
	stateTextBoxing
)

// session is the single authoritative mutable gesture object. It is updated
// in place and read fresh on every event; nothing captures older snapshots.
type session struct {
	state gestureState

	// start is the image-space pointer-down position of the gesture.
	start geometry.Point2D
	// lastScreen tracks the previous screen position for pan deltas.
	lastScreen geometry.Point2D
	// lastImage tracks the previous image position for drag deltas.
	lastImage geometry.Point2D

	// live is the in-progress shape during Drawing/Placing/TextBoxing.
	live *annotation.Annotation
	// step is the angle placement step (0, 1, 2).
	step int

	// Resize bookkeeping: the grabbed handle, the bounding box at gesture
	// start, and the anchor held fixed for the gesture's duration.
	handle    HandleID
	startRect geometry.Rect
	anchor    geometry.Point2D

	// dirty marks that the committed collection changed during the gesture
	// (drag moved, resize applied, shapes erased).
	dirty bool
}

// PointerDown dispatches a pointer press at the given screen position.
func (e *Editor) PointerDown(screen geometry.Point2D) {
	p := e.viewport.ToImage(screen)

	// An active multi-step placement consumes every press until it commits.
	if e.gesture.state == statePlacing {
		e.advancePlacement(p)
		return
	}
	if e.gesture.state != stateIdle {
		return
	}

	if e.panHold {
		e.gesture = session{state: statePanning, lastScreen: screen}
		return
	}

	tol := e.hitTolerance()

	// 1. Resize handle of the selected, unlocked shape.
	if sel := e.selected(); sel != nil && !sel.Locked && sel.Resizable() {
		if h, ok := handleAt(sel, p, tol); ok {
			rect := geometry.RectFromCorners(sel.Points[0], sel.Points[1])
			e.gesture = session{
				state:     stateResizing,
				start:     p,
				handle:    h,
				startRect: rect,
				anchor:    resizeAnchor(rect, h),
			}
			return
		}
	}

	switch e.tool {
	case ToolSelect:
		// 2. Hit an existing shape: select, drag if unlocked.
		if hit := e.topmostHit(p, tol); hit != nil {
			e.selectedID = hit.ID
			if !hit.Locked {
				e.gesture = session{state: stateDragging, start: p, lastImage: p}
			}
			return
		}
		// 3. Empty space: clear selection and pan.
		e.selectedID = ""
		e.gesture = session{state: statePanning, lastScreen: screen}

	case ToolEraser:
		// 4. Erase continuously, starting with the first hit.
		e.gesture = session{state: stateErasing, lastImage: p}
		e.eraseAt(p, tol)

	case ToolText:
		// 5. Track a rectangle for inline text entry.
		live := annotation.New(annotation.KindText, p, p)
		e.gesture = session{state: stateTextBoxing, start: p, live: live}

	case ToolMarker:
		// 6. Markers commit on the press itself.
		e.commitShape(annotation.New(annotation.KindMarker, p))

	case ToolAngle:
		// 7. Three-press placement; the first press places two coincident
		// points and the trailing one follows the pointer.
		live := annotation.New(annotation.KindAngle, p, p)
		e.gesture = session{state: statePlacing, start: p, live: live, step: 1}

	default:
		// 8. Two-point drawing; freehand accumulates points as it moves.
		kind, ok := e.tool.ShapeKind()
		if !ok {
			return
		}
		var live *annotation.Annotation
		if kind == annotation.KindFreehand {
			live = annotation.New(kind, p)
		} else {
			live = annotation.New(kind, p, p)
		}
		e.gesture = session{state: stateDrawing, start: p, live: live}
	}
}

// PointerMove dispatches pointer motion according to the active state.
func (e *Editor) PointerMove(screen geometry.Point2D) {
	p := e.viewport.ToImage(screen)

	switch e.gesture.state {
	case statePanning:
		e.viewport.PanBy(screen.Sub(e.gesture.lastScreen))
		e.gesture.lastScreen = screen

	case stateDragging:
		sel := e.selected()
		if sel == nil || sel.Locked {
			return
		}
		delta := p.Sub(e.gesture.lastImage)
		for i := range sel.Points {
			sel.Points[i] = sel.Points[i].Add(delta)
		}
		e.gesture.lastImage = p
		e.gesture.dirty = true

	case stateResizing:
		e.applyResize(p)

	case stateErasing:
		// Skip repeats of the same position, so a motionless press-release
		// does not erase through a stack.
		if p != e.gesture.lastImage {
			e.gesture.lastImage = p
			e.eraseAt(p, e.hitTolerance())
		}

	case stateDrawing:
		live := e.gesture.live
		if live.Kind == annotation.KindFreehand {
			live.Points = append(live.Points, p)
		} else {
			live.Points[len(live.Points)-1] = p
		}

	case statePlacing, stateTextBoxing:
		live := e.gesture.live
		live.Points[len(live.Points)-1] = p
	}
}

// PointerUp finalizes the gesture. There is no separate cancel path:
// releasing the pointer always commits or discards. The UI calls this on
// drag end, on the pointer leaving the surface, and on window-level
// release, so no gesture outlives its pointer.
func (e *Editor) PointerUp(screen geometry.Point2D) {
	e.PointerMove(screen)

	switch e.gesture.state {
	case statePanning:
		// View-only; never historized.
		e.gesture = session{}

	case stateDragging, stateResizing, stateErasing:
		if e.gesture.dirty {
			e.hist.Push(e.annotations)
		}
		e.gesture = session{}

	case stateDrawing:
		live := e.gesture.live
		e.gesture = session{}
		if live.Valid() && !degenerate(live) {
			e.commitShape(live)
		}

	case stateTextBoxing:
		live := e.gesture.live
		e.gesture = session{}
		w, h := live.Size()
		if w > e.cfg.TextMinWidth && h > e.cfg.TextMinHeight {
			// Geometry accepted; the shape is committed once non-empty
			// text is confirmed.
			e.pendingText = live
		}

	case statePlacing:
		// Multi-step placement advances on presses, not releases.
	}
}

// PlacingActive reports whether a multi-step placement is waiting for its
// next press. The UI forwards hover motion while this holds so the trailing
// point follows the pointer between presses.
func (e *Editor) PlacingActive() bool {
	return e.gesture.state == statePlacing
}

// Wheel applies one zoom tick centered on the pointer.
func (e *Editor) Wheel(screen geometry.Point2D, deltaY float64) {
	if deltaY > 0 {
		e.viewport.WheelZoomAt(screen, view.WheelZoomIn)
	} else if deltaY < 0 {
		e.viewport.WheelZoomAt(screen, view.WheelZoomOut)
	}
}

// advancePlacement handles the second and third presses of the angle tool.
func (e *Editor) advancePlacement(p geometry.Point2D) {
	live := e.gesture.live
	live.Points[len(live.Points)-1] = p

	switch e.gesture.step {
	case 1:
		// Vertex fixed; start the second ray.
		live.Points = append(live.Points, p)
		e.gesture.step = 2
	case 2:
		e.gesture = session{}
		if live.Valid() {
			e.commitShape(live)
		}
	}
}

// applyResize recomputes the selected shape's two points from the damped
// pointer position, holding the anchor fixed.
func (e *Editor) applyResize(raw geometry.Point2D) {
	sel := e.selected()
	if sel == nil || len(sel.Points) != 2 {
		return
	}
	g := &e.gesture
	damped := g.start.Add(raw.Sub(g.start).Scale(e.cfg.ResizeDamping))
	moving := resizeMoving(g.startRect, g.handle, damped)
	sel.Points[0] = g.anchor
	sel.Points[1] = moving
	g.dirty = true
}

// topmostHit returns the last (topmost-drawn) shape under the point.
func (e *Editor) topmostHit(p geometry.Point2D, tol float64) *annotation.Annotation {
	for i := len(e.annotations) - 1; i >= 0; i-- {
		if e.annotations[i].HitTest(p, tol) {
			return e.annotations[i]
		}
	}
	return nil
}

// eraseAt removes the first hit unlocked shape in collection order. One
// shape per event: stacked shapes under a stationary press go one at a
// time, while a sweep picks up the rest on subsequent moves.
func (e *Editor) eraseAt(p geometry.Point2D, tol float64) {
	for i, a := range e.annotations {
		if a.Locked || !a.HitTest(p, tol) {
			continue
		}
		if a.ID == e.selectedID {
			e.selectedID = ""
		}
		e.annotations = append(e.annotations[:i], e.annotations[i+1:]...)
		e.gesture.dirty = true
		return
	}
}

// commitShape appends a finished shape, historizes, selects it, and returns
// to the select tool.
func (e *Editor) commitShape(a *annotation.Annotation) {
	e.annotations = append(e.annotations, a)
	e.hist.Push(e.annotations)
	e.selectedID = a.ID
	e.tool = ToolSelect
	e.log.Debug().Str("id", a.ID).Str("kind", string(a.Kind)).Msg("commit annotation")
}

// ConfirmPendingText commits the pending text rectangle with its content.
// Empty text drops the placement, matching the silent-discard rule for
// undersized rectangles.
func (e *Editor) ConfirmPendingText(text string) {
	pending := e.pendingText
	e.pendingText = nil
	if pending == nil || text == "" {
		return
	}
	pending.Text = text
	e.commitShape(pending)
}

// CancelPendingText drops the pending text rectangle.
func (e *Editor) CancelPendingText() {
	e.pendingText = nil
}

// PendingText returns the text rectangle awaiting content, if any.
func (e *Editor) PendingText() *annotation.Annotation {
	return e.pendingText
}

// degenerate reports whether a freshly drawn shape collapsed to a point.
// Covers freehand too: a motionless click accumulates only coincident
// points and commits nothing.
func degenerate(a *annotation.Annotation) bool {
	if a.Kind == annotation.KindMarker {
		return false
	}
	w, h := a.Size()
	return w == 0 && h == 0
}
