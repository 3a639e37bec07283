// Package canvas renders the radiograph with its annotation overlay and
// feeds pointer input to the annotation engine.
package canvas

import (
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"xray-annotator/internal/app"
	"xray-annotator/pkg/geometry"
)

// AnnotationCanvas displays the current study and forwards mouse events to
// the editor. The pixel output is produced by a raster callback: the image
// is composited through the viewport transform, then the scene is drawn on
// top in screen space.
type AnnotationCanvas struct {
	widget.BaseWidget

	state  *app.State
	raster *fynecanvas.Raster

	// lastPos is the most recent pointer position, used to release a
	// gesture when the pointer leaves the widget.
	lastPos    geometry.Point2D
	buttonDown bool

	// lastRevision tracks the editor history version so pointer-up can tell
	// whether the gesture committed anything.
	lastRevision int

	// onPendingText fires after a gesture leaves a text box waiting for
	// content, so the window can prompt for it.
	onPendingText func()
}

var (
	_ desktop.Mouseable = (*AnnotationCanvas)(nil)
	_ desktop.Hoverable = (*AnnotationCanvas)(nil)
	_ fyne.Scrollable   = (*AnnotationCanvas)(nil)
)

// New creates the canvas bound to the application state.
func New(state *app.State) *AnnotationCanvas {
	c := &AnnotationCanvas{state: state}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.ExtendBaseWidget(c)

	state.On(app.EventImageLoaded, func(interface{}) {
		c.lastRevision = state.Editor.Revision()
		c.Refresh()
	})
	state.On(app.EventStudyLoaded, func(interface{}) {
		c.lastRevision = state.Editor.Revision()
		c.Refresh()
	})
	return c
}

func toPoint(pos fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(float64(pos.X), float64(pos.Y))
}

// MouseDown starts a gesture on the primary button.
func (c *AnnotationCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	p := toPoint(ev.Position)
	c.lastPos = p
	c.buttonDown = true
	c.state.Editor.PointerDown(p)
	c.Refresh()
}

// MouseUp finishes the gesture.
func (c *AnnotationCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !c.buttonDown {
		return
	}
	c.release(toPoint(ev.Position))
}

// MouseMoved updates the active gesture. A multi-step placement stays live
// between presses with the button up, so hover motion is forwarded while
// one is active; otherwise hover only records the position for keyboard
// zoom centering.
func (c *AnnotationCanvas) MouseMoved(ev *desktop.MouseEvent) {
	p := toPoint(ev.Position)
	c.lastPos = p
	if c.buttonDown || c.state.Editor.PlacingActive() {
		c.state.Editor.PointerMove(p)
		c.Refresh()
	}
}

// MouseIn implements desktop.Hoverable.
func (c *AnnotationCanvas) MouseIn(*desktop.MouseEvent) {}

// MouseOut releases an in-flight gesture at the last known position, so no
// gesture outlives the pointer leaving the canvas.
func (c *AnnotationCanvas) MouseOut() {
	if c.buttonDown {
		c.release(c.lastPos)
	}
}

// OnPendingText registers the callback invoked when a drawn text box needs
// its content entered.
func (c *AnnotationCanvas) OnPendingText(fn func()) {
	c.onPendingText = fn
}

func (c *AnnotationCanvas) release(p geometry.Point2D) {
	c.buttonDown = false
	c.state.Editor.PointerUp(p)
	if c.state.Editor.PendingText() != nil && c.onPendingText != nil {
		c.onPendingText()
	}
	if rev := c.state.Editor.Revision(); rev != c.lastRevision {
		c.lastRevision = rev
		c.state.SetModified(true)
		c.state.Emit(app.EventAnnotationsChanged, nil)
	}
	c.Refresh()
}

// Scrolled zooms around the pointer.
func (c *AnnotationCanvas) Scrolled(ev *fyne.ScrollEvent) {
	c.state.Editor.Wheel(toPoint(ev.Position), float64(ev.Scrolled.DY))
	c.Refresh()
}

// PointerPosition returns the last known pointer position on the canvas,
// used to center keyboard zoom.
func (c *AnnotationCanvas) PointerPosition() geometry.Point2D {
	return c.lastPos
}

// SyncAfterEdit refreshes after an edit made outside a pointer gesture
// (undo, redo, delete, panel edits) and updates the revision baseline.
func (c *AnnotationCanvas) SyncAfterEdit() {
	if rev := c.state.Editor.Revision(); rev != c.lastRevision {
		c.lastRevision = rev
		c.state.SetModified(true)
		c.state.Emit(app.EventAnnotationsChanged, nil)
	}
	c.Refresh()
}

// Refresh repaints the raster.
func (c *AnnotationCanvas) Refresh() {
	c.raster.Refresh()
	c.BaseWidget.Refresh()
}

// draw is the raster callback.
func (c *AnnotationCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	// Opaque black background.
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}

	c.compositeImage(out, w, h)
	c.renderScene(out)
	return out
}

// compositeImage draws the radiograph through the inverse viewport
// transform with nearest-neighbor sampling.
func (c *AnnotationCanvas) compositeImage(out *image.RGBA, w, h int) {
	layer := c.state.Image
	if layer == nil || layer.Image == nil {
		return
	}
	src := layer.Image
	srcBounds := src.Bounds()
	vp := c.state.Editor.Viewport()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img := vp.ToImage(geometry.NewPoint2D(float64(x), float64(y)))
			srcX := int(img.X) + srcBounds.Min.X
			srcY := int(img.Y) + srcBounds.Min.Y
			if img.X < 0 || img.Y < 0 ||
				srcX < srcBounds.Min.X || srcX >= srcBounds.Max.X ||
				srcY < srcBounds.Min.Y || srcY >= srcBounds.Max.Y {
				continue
			}
			out.Set(x, y, src.At(srcX, srcY))
		}
	}
}

// CreateRenderer implements fyne.Widget.
func (c *AnnotationCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &annotationCanvasRenderer{canvas: c}
}

type annotationCanvasRenderer struct {
	canvas *AnnotationCanvas
}

func (r *annotationCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *annotationCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *annotationCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *annotationCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *annotationCanvasRenderer) Destroy() {}
