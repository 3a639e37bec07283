// Package editor implements the annotation interaction engine: it consumes
// pointer, wheel, and keyboard input, owns the committed shape collection
// and the in-flight gesture, and exposes the resulting scene to a renderer.
package editor

import (
	"github.com/rs/zerolog"

	"xray-annotator/internal/annotation"
	"xray-annotator/internal/history"
	"xray-annotator/internal/view"
	"xray-annotator/pkg/geometry"
)

// Tool is the active interaction mode. Shape tools share their name with
// the annotation kind they draw; Select and Eraser are pure tools.
type Tool string

const (
	ToolSelect   Tool = "select"
	ToolEraser   Tool = "eraser"
	ToolMarker   Tool = Tool(annotation.KindMarker)
	ToolBox      Tool = Tool(annotation.KindBox)
	ToolCircle   Tool = Tool(annotation.KindCircle)
	ToolEllipse  Tool = Tool(annotation.KindEllipse)
	ToolLine     Tool = Tool(annotation.KindLine)
	ToolRuler    Tool = Tool(annotation.KindRuler)
	ToolAngle    Tool = Tool(annotation.KindAngle)
	ToolText     Tool = Tool(annotation.KindText)
	ToolFreehand Tool = Tool(annotation.KindFreehand)
)

// ShapeKind returns the annotation kind a drawing tool produces. The second
// return value is false for Select and Eraser.
func (t Tool) ShapeKind() (annotation.Kind, bool) {
	switch t {
	case ToolSelect, ToolEraser:
		return "", false
	default:
		return annotation.Kind(t), true
	}
}

// Config carries the interaction tunables. Zoom clamp ranges live on the
// viewport (see internal/view).
type Config struct {
	// HitThreshold is the proximity threshold in screen pixels; it is
	// divided by the zoom before hit testing so it is zoom-invariant.
	HitThreshold float64
	// ResizeDamping is the multiplier applied to the raw pointer delta
	// during a resize gesture to reduce jitter.
	ResizeDamping float64
	// TextMinWidth/TextMinHeight are the minimum image-space dimensions a
	// drawn text rectangle must reach; smaller placements are discarded.
	TextMinWidth  float64
	TextMinHeight float64
}

// DefaultConfig returns the stock interaction tunables.
func DefaultConfig() Config {
	return Config{
		HitThreshold:  8,
		ResizeDamping: 0.7,
		TextMinWidth:  20,
		TextMinHeight: 15,
	}
}

// Editor is the gesture state machine. All access is single-threaded: every
// input event fully updates state before the next one is processed, and the
// renderer only reads the scene between events.
type Editor struct {
	cfg      Config
	log      zerolog.Logger
	viewport *view.Viewport
	hist     *history.Stack

	annotations []*annotation.Annotation
	selectedID  string
	tool        Tool
	panHold     bool

	// The single authoritative gesture session, reset on every pointer-up.
	gesture session

	// pendingText holds a drawn text rectangle awaiting its content. It is
	// committed by ConfirmPendingText and dropped by CancelPendingText.
	pendingText *annotation.Annotation
}

// New creates an editor with an empty collection and the Select tool active.
func New(cfg Config, vp *view.Viewport, log zerolog.Logger) *Editor {
	return &Editor{
		cfg:      cfg,
		log:      log,
		viewport: vp,
		hist:     history.NewStack(),
		tool:     ToolSelect,
	}
}

// Viewport returns the pan/zoom state the editor drives.
func (e *Editor) Viewport() *view.Viewport {
	return e.viewport
}

// Tool returns the active tool.
func (e *Editor) Tool() Tool {
	return e.tool
}

// SetTool switches the active tool and abandons any pending text placement.
func (e *Editor) SetTool(t Tool) {
	e.tool = t
	e.pendingText = nil
}

// SetPanHold toggles pan-while-held mode (typically bound to holding the
// space key): while active, any pointer-down pans regardless of tool.
func (e *Editor) SetPanHold(held bool) {
	e.panHold = held
}

// Annotations returns the committed collection. Callers must treat it as
// read-only; all mutation goes through gestures or the explicit edits below.
func (e *Editor) Annotations() []*annotation.Annotation {
	return e.annotations
}

// SelectedID returns the id of the selected shape, or "" when none.
func (e *Editor) SelectedID() string {
	return e.selectedID
}

// Select sets the selection to the shape with the given id ("" clears it).
func (e *Editor) Select(id string) {
	e.selectedID = id
}

func (e *Editor) selected() *annotation.Annotation {
	if e.selectedID == "" {
		return nil
	}
	for _, a := range e.annotations {
		if a.ID == e.selectedID {
			return a
		}
	}
	return nil
}

// find returns the index of the shape with the given id, or -1.
func (e *Editor) find(id string) int {
	for i, a := range e.annotations {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// DeleteSelected removes the selected shape. Unlike the eraser gesture this
// deliberately ignores the locked flag: the lock protects against stray
// canvas gestures, not against an explicit delete action.
func (e *Editor) DeleteSelected() {
	i := e.find(e.selectedID)
	if i < 0 {
		return
	}
	e.log.Debug().Str("id", e.selectedID).Msg("delete annotation")
	e.annotations = append(e.annotations[:i], e.annotations[i+1:]...)
	e.selectedID = ""
	e.hist.Push(e.annotations)
}

// SetLocked toggles the locked flag on a shape and records the change.
func (e *Editor) SetLocked(id string, locked bool) {
	i := e.find(id)
	if i < 0 || e.annotations[i].Locked == locked {
		return
	}
	e.annotations[i].Locked = locked
	e.hist.Push(e.annotations)
}

// SetLabel replaces a shape's caption and records the change.
func (e *Editor) SetLabel(id, label string) {
	i := e.find(id)
	if i < 0 || e.annotations[i].Label == label {
		return
	}
	e.annotations[i].Label = label
	e.hist.Push(e.annotations)
}

// Undo steps the collection back one committed gesture and clears the
// selection. Past the oldest snapshot it is a no-op.
func (e *Editor) Undo() {
	if e.gesture.state != stateIdle {
		return
	}
	if col, ok := e.hist.Undo(); ok {
		e.annotations = col
		e.selectedID = ""
	}
}

// Redo steps the collection forward one entry and clears the selection.
func (e *Editor) Redo() {
	if e.gesture.state != stateIdle {
		return
	}
	if col, ok := e.hist.Redo(); ok {
		e.annotations = col
		e.selectedID = ""
	}
}

// CanUndo reports whether an undo step is available.
func (e *Editor) CanUndo() bool { return e.hist.CanUndo() }

// CanRedo reports whether a redo step is available.
func (e *Editor) CanRedo() bool { return e.hist.CanRedo() }

// Revision changes whenever the committed collection's history moves (a
// gesture commits, or undo/redo/reset runs). The UI compares revisions to
// decide when lists and dirty flags need updating.
func (e *Editor) Revision() int { return e.hist.Version() }

// ResetForNewImage drops the collection, selection, and history, returning
// to a single empty history entry.
func (e *Editor) ResetForNewImage() {
	e.annotations = nil
	e.selectedID = ""
	e.pendingText = nil
	e.gesture = session{}
	e.hist.Reset()
}

// SetAnnotations replaces the collection (e.g. with a set loaded from the
// store) and makes it the new history baseline.
func (e *Editor) SetAnnotations(col []*annotation.Annotation) {
	e.hist.Reset()
	e.annotations = col
	e.selectedID = ""
	if len(col) > 0 {
		e.hist.Push(col)
	}
}

// ZoomInStep and ZoomOutStep apply the discrete zoom controls, centered on
// the given screen position, using the step clamp range.
func (e *Editor) ZoomInStep(center geometry.Point2D) {
	e.viewport.StepZoomAt(center, view.StepZoomIn)
}

// ZoomOutStep is the discrete zoom-out counterpart of ZoomInStep.
func (e *Editor) ZoomOutStep(center geometry.Point2D) {
	e.viewport.StepZoomAt(center, view.StepZoomOut)
}

// toolForKey maps single-letter shortcuts to tools.
var toolForKey = map[rune]Tool{
	's': ToolSelect,
	'm': ToolMarker,
	'b': ToolBox,
	'c': ToolCircle,
	'e': ToolEllipse,
	'l': ToolLine,
	'f': ToolFreehand,
	'r': ToolRuler,
	'a': ToolAngle,
	't': ToolText,
	'x': ToolEraser,
}

// HandleKey processes a single-character keyboard shortcut and reports
// whether it was consumed. The caller suppresses these while a text input
// has focus. Undo/redo and delete arrive through their own methods since
// they carry modifiers.
func (e *Editor) HandleKey(r rune, zoomCenter geometry.Point2D) bool {
	if tool, ok := toolForKey[r]; ok {
		e.SetTool(tool)
		return true
	}
	switch r {
	case '+', '=':
		e.ZoomInStep(zoomCenter)
		return true
	case '-':
		e.ZoomOutStep(zoomCenter)
		return true
	}
	return false
}

// hitTolerance converts the configured screen-space threshold to image
// space at the current zoom.
func (e *Editor) hitTolerance() float64 {
	return e.viewport.ToImageDistance(e.cfg.HitThreshold)
}
