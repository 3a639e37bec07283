package editor

import (
	"xray-annotator/internal/annotation"
	"xray-annotator/pkg/geometry"
)

// Scene is the render contract: everything a presentation layer needs to
// draw the current annotation state. The engine defines what must be
// rendered; how pixels are produced is the renderer's business. The scene
// references live engine state and must only be read.
type Scene struct {
	// Annotations is the committed collection, in draw order.
	Annotations []*annotation.Annotation
	// Live is the in-progress shape of an active gesture, or nil.
	Live *annotation.Annotation
	// SelectedID is the id of the selected shape, or "".
	SelectedID string
	// Handles holds the eight resize-handle positions of the selected
	// shape, when it is unlocked and its kind supports resizing.
	Handles []Handle
	// Badge is the label decoration of the selected shape, or nil.
	Badge *LabelBadge
}

// LabelBadge is the colored caption drawn at a selected shape's bounding
// box top-right corner when the shape carries a non-empty label.
type LabelBadge struct {
	Pos    geometry.Point2D
	Text   string
	Color  string
	Locked bool
}

// Scene assembles the current render contract output.
func (e *Editor) Scene() Scene {
	s := Scene{
		Annotations: e.annotations,
		SelectedID:  e.selectedID,
	}
	if e.gesture.live != nil {
		s.Live = e.gesture.live
	} else if e.pendingText != nil {
		s.Live = e.pendingText
	}

	sel := e.selected()
	if sel == nil {
		return s
	}
	if !sel.Locked && sel.Resizable() && len(sel.Points) == 2 {
		r := geometry.RectFromCorners(sel.Points[0], sel.Points[1])
		positions := handlePositions(r)
		s.Handles = positions[:]
	}
	if sel.Label != "" {
		s.Badge = &LabelBadge{
			Pos:    sel.Bounds().TopRight(),
			Text:   sel.Label,
			Color:  sel.Color,
			Locked: sel.Locked,
		}
	}
	return s
}
