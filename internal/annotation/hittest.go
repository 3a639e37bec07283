package annotation

import (
	"math"

	"xray-annotator/pkg/geometry"
)

// HitTest reports whether the image-space point p lies on or near the shape.
// The tolerance is in image-space units; callers derive it from a fixed
// screen-space threshold divided by the current zoom so proximity feels the
// same at every zoom level. Degenerate geometry (zero-length segments, zero
// radii) never hits.
func (a *Annotation) HitTest(p geometry.Point2D, tol float64) bool {
	switch a.Kind {
	case KindMarker:
		if len(a.Points) != 1 {
			return false
		}
		return p.Distance(a.Points[0]) < tol+MarkerRadius

	case KindBox:
		if len(a.Points) != 2 {
			return false
		}
		r := geometry.RectFromCorners(a.Points[0], a.Points[1])
		if r.Contains(p) {
			return true
		}
		return nearRectEdge(p, r, tol)

	case KindCircle:
		if len(a.Points) != 2 {
			return false
		}
		center := a.Points[0].Add(a.Points[1]).Scale(0.5)
		r := a.Radius()
		d := p.Distance(center)
		return math.Abs(d-r) < tol || d < r

	case KindEllipse:
		if len(a.Points) != 2 {
			return false
		}
		rx, ry := a.Radii()
		if rx == 0 || ry == 0 {
			return false
		}
		center := a.Points[0].Add(a.Points[1]).Scale(0.5)
		nx := (p.X - center.X) / rx
		ny := (p.Y - center.Y) / ry
		return math.Sqrt(nx*nx+ny*ny) <= 1+tol/math.Min(rx, ry)

	case KindLine, KindRuler:
		if len(a.Points) != 2 {
			return false
		}
		d, ok := geometry.SegmentDistance(p, a.Points[0], a.Points[1])
		return ok && d < tol

	case KindAngle:
		if len(a.Points) != 3 {
			return false
		}
		if d, ok := geometry.SegmentDistance(p, a.Points[0], a.Points[1]); ok && d < tol {
			return true
		}
		d, ok := geometry.SegmentDistance(p, a.Points[1], a.Points[2])
		return ok && d < tol

	case KindText:
		if len(a.Points) != 2 {
			return false
		}
		r := geometry.RectFromCorners(a.Points[0], a.Points[1])
		return r.Expand(tol).Contains(p)

	case KindFreehand:
		for _, pt := range a.Points {
			if p.Distance(pt) < tol {
				return true
			}
		}
		return false
	}
	return false
}

// nearRectEdge reports whether p lies within tol of any of the rectangle's
// four edges.
func nearRectEdge(p geometry.Point2D, r geometry.Rect, tol float64) bool {
	corners := [4]geometry.Point2D{
		r.TopLeft(), r.TopRight(), r.BottomRight(), r.BottomLeft(),
	}
	for i := range corners {
		a := corners[i]
		b := corners[(i+1)%4]
		if a == b {
			continue
		}
		if d, ok := geometry.SegmentDistance(p, a, b); ok && d < tol {
			return true
		}
	}
	return false
}
