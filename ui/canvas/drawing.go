package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"xray-annotator/internal/annotation"
	"xray-annotator/internal/editor"
	"xray-annotator/internal/view"
	"xray-annotator/pkg/colorutil"
	"xray-annotator/pkg/geometry"
)

const (
	strokeThickness = 2
	handleSize      = 7
)

var (
	selectionColor = colorutil.Yellow
	handleFill     = colorutil.White
	badgeTextColor = colorutil.Black
)

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(out *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := out.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					out.Set(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawRectOutline draws an axis-aligned rectangle outline.
func drawRectOutline(out *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	drawLine(out, x1, y1, x2, y1, col, thickness)
	drawLine(out, x1, y2, x2, y2, col, thickness)
	drawLine(out, x1, y1, x1, y2, col, thickness)
	drawLine(out, x2, y1, x2, y2, col, thickness)
}

// drawDashedRect draws a rectangle outline with alternating 2-on/2-off
// pixels, used for the selection indicator.
func drawDashedRect(out *image.RGBA, x1, y1, x2, y2 int, col color.RGBA) {
	bounds := out.Bounds()
	set := func(x, y int) {
		if (x+y)%4 < 2 && x >= bounds.Min.X && x < bounds.Max.X &&
			y >= bounds.Min.Y && y < bounds.Max.Y {
			out.Set(x, y, col)
		}
	}
	for x := x1; x <= x2; x++ {
		set(x, y1)
		set(x, y2)
	}
	for y := y1; y <= y2; y++ {
		set(x1, y)
		set(x2, y)
	}
}

// drawEllipseOutline approximates an ellipse with line segments.
func drawEllipseOutline(out *image.RGBA, cx, cy, rx, ry float64, col color.RGBA, thickness int) {
	const segments = 72
	if rx <= 0 && ry <= 0 {
		return
	}
	prevX := cx + rx
	prevY := cy
	for i := 1; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i) / segments
		x := cx + rx*math.Cos(theta)
		y := cy + ry*math.Sin(theta)
		drawLine(out, int(prevX), int(prevY), int(x), int(y), col, thickness)
		prevX, prevY = x, y
	}
}

// fillSquare draws a filled square centered on (cx, cy) with a 1px border.
func fillSquare(out *image.RGBA, cx, cy, size int, fill, border color.RGBA) {
	bounds := out.Bounds()
	half := size / 2
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			if x == cx-half || x == cx+half || y == cy-half || y == cy+half {
				out.Set(x, y, border)
			} else {
				out.Set(x, y, fill)
			}
		}
	}
}

// renderScene draws the committed shapes, the live shape, the selection
// decoration, and the label badge onto the output.
func (c *AnnotationCanvas) renderScene(out *image.RGBA) {
	vp := c.state.Editor.Viewport()
	scene := c.state.Editor.Scene()

	for _, a := range scene.Annotations {
		c.drawAnnotation(out, vp, a)
		if a.ID == scene.SelectedID {
			c.drawSelection(out, vp, a)
		}
	}
	if scene.Live != nil {
		c.drawAnnotation(out, vp, scene.Live)
	}

	for _, h := range scene.Handles {
		s := vp.ToScreen(h.Pos)
		fillSquare(out, int(s.X), int(s.Y), handleSize, handleFill, badgeTextColor)
	}

	if scene.Badge != nil {
		c.drawBadge(out, vp, scene.Badge)
	}
}

func (c *AnnotationCanvas) drawAnnotation(out *image.RGBA, vp *view.Viewport, a *annotation.Annotation) {
	col := colorutil.ParseHex(a.Color, colorutil.Yellow)
	if a.Locked {
		col = colorutil.Dim(col, 0.6)
	}

	screen := make([]geometry.Point2D, len(a.Points))
	for i, p := range a.Points {
		screen[i] = vp.ToScreen(p)
	}

	switch a.Kind {
	case annotation.KindMarker:
		c.drawMarker(out, vp, screen[0], col)

	case annotation.KindBox, annotation.KindText:
		if len(screen) < 2 {
			return
		}
		r := geometry.RectFromCorners(screen[0], screen[1])
		drawRectOutline(out, int(r.X), int(r.Y), int(r.X+r.Width), int(r.Y+r.Height), col, strokeThickness)
		if a.Kind == annotation.KindText && a.Text != "" {
			drawText(out, a.Text, int(r.X)+4, int(r.Y)+4, col, 2)
		}

	case annotation.KindCircle:
		if len(screen) < 2 {
			return
		}
		center := screen[0].Add(screen[1]).Scale(0.5)
		r := a.Radius() * vp.Zoom
		drawEllipseOutline(out, center.X, center.Y, r, r, col, strokeThickness)

	case annotation.KindEllipse:
		if len(screen) < 2 {
			return
		}
		center := screen[0].Add(screen[1]).Scale(0.5)
		rx, ry := a.Radii()
		drawEllipseOutline(out, center.X, center.Y, rx*vp.Zoom, ry*vp.Zoom, col, strokeThickness)

	case annotation.KindLine:
		if len(screen) < 2 {
			return
		}
		drawLine(out, int(screen[0].X), int(screen[0].Y), int(screen[1].X), int(screen[1].Y), col, strokeThickness)

	case annotation.KindRuler:
		if len(screen) < 2 {
			return
		}
		c.drawRuler(out, a, screen, col)

	case annotation.KindAngle:
		if len(screen) < 3 {
			return
		}
		drawLine(out, int(screen[1].X), int(screen[1].Y), int(screen[0].X), int(screen[0].Y), col, strokeThickness)
		drawLine(out, int(screen[1].X), int(screen[1].Y), int(screen[2].X), int(screen[2].Y), col, strokeThickness)
		label := fmt.Sprintf("%.1f DEG", a.AngleDegrees())
		drawTextCentered(out, label, int(screen[1].X), int(screen[1].Y)-12, col, 2)

	case annotation.KindFreehand:
		for i := 1; i < len(screen); i++ {
			drawLine(out, int(screen[i-1].X), int(screen[i-1].Y), int(screen[i].X), int(screen[i].Y), col, strokeThickness)
		}
	}
}

// drawMarker renders the cross-and-ring point marker.
func (c *AnnotationCanvas) drawMarker(out *image.RGBA, vp *view.Viewport, center geometry.Point2D, col color.RGBA) {
	r := annotation.MarkerRadius * vp.Zoom
	x, y := int(center.X), int(center.Y)
	arm := int(r)
	drawLine(out, x-arm, y, x+arm, y, col, strokeThickness)
	drawLine(out, x, y-arm, x, y+arm, col, strokeThickness)
	drawEllipseOutline(out, center.X, center.Y, r, r, col, 1)
}

// drawRuler renders the measurement line with end ticks and a length
// readout, in millimeters when the scan resolution is known.
func (c *AnnotationCanvas) drawRuler(out *image.RGBA, a *annotation.Annotation, screen []geometry.Point2D, col color.RGBA) {
	p1, p2 := screen[0], screen[1]
	drawLine(out, int(p1.X), int(p1.Y), int(p2.X), int(p2.Y), col, strokeThickness)

	// Perpendicular end ticks.
	d := p2.Sub(p1)
	length := p1.Distance(p2)
	if length > 0 {
		nx := -d.Y / length * 6
		ny := d.X / length * 6
		for _, p := range []geometry.Point2D{p1, p2} {
			drawLine(out, int(p.X-nx), int(p.Y-ny), int(p.X+nx), int(p.Y+ny), col, strokeThickness)
		}
	}

	label := fmt.Sprintf("%.0f PX", a.Length())
	if img := c.state.Image; img != nil {
		if mm, ok := img.PixelsToMillimeters(a.Length()); ok {
			label = fmt.Sprintf("%.1f MM", mm)
		}
	}
	mid := p1.Add(p2).Scale(0.5)
	drawTextCentered(out, label, int(mid.X), int(mid.Y)-12, col, 2)
}

// drawSelection draws the dashed bounding-box indicator around a shape.
func (c *AnnotationCanvas) drawSelection(out *image.RGBA, vp *view.Viewport, a *annotation.Annotation) {
	b := a.Bounds().Expand(4 / vp.Zoom)
	tl := vp.ToScreen(b.TopLeft())
	br := vp.ToScreen(b.BottomRight())
	drawDashedRect(out, int(tl.X), int(tl.Y), int(br.X), int(br.Y), selectionColor)
}

// drawBadge renders the label caption at the shape's top-right corner:
// a filled tag in the shape color with black text, starred when locked.
func (c *AnnotationCanvas) drawBadge(out *image.RGBA, vp *view.Viewport, badge *editor.LabelBadge) {
	text := badge.Text
	if badge.Locked {
		text = "* " + text
	}
	const scale = 2
	pos := vp.ToScreen(badge.Pos)
	w := textWidth(text, scale) + 8
	h := textHeight(scale) + 6

	x1, y1 := int(pos.X), int(pos.Y)-h
	x2, y2 := x1+w, y1+h

	fill := colorutil.ParseHex(badge.Color, colorutil.Yellow)
	bounds := out.Bounds()
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
				out.Set(x, y, fill)
			}
		}
	}
	drawText(out, text, x1+4, y1+3, badgeTextColor, scale)
}
