package editor

import (
	"xray-annotator/internal/annotation"
	"xray-annotator/pkg/geometry"
)

// HandleID names one of the eight resize handles on a selected shape's
// bounding box: four corners and four edge midpoints.
type HandleID int

const (
	HandleNW HandleID = iota
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
)

// Handle pairs a handle id with its image-space position.
type Handle struct {
	ID  HandleID
	Pos geometry.Point2D
}

// handlePositions returns the eight handle positions for a bounding box.
func handlePositions(r geometry.Rect) [8]Handle {
	cx := r.X + r.Width/2
	cy := r.Y + r.Height/2
	return [8]Handle{
		{HandleNW, r.TopLeft()},
		{HandleN, geometry.NewPoint2D(cx, r.Y)},
		{HandleNE, r.TopRight()},
		{HandleE, geometry.NewPoint2D(r.X+r.Width, cy)},
		{HandleSE, r.BottomRight()},
		{HandleS, geometry.NewPoint2D(cx, r.Y+r.Height)},
		{HandleSW, r.BottomLeft()},
		{HandleW, geometry.NewPoint2D(r.X, cy)},
	}
}

// handleAt returns the handle under the image-space point, if any. The
// tolerance is the zoom-scaled hit threshold, so grabbing a handle feels
// the same at every zoom level.
func handleAt(a *annotation.Annotation, p geometry.Point2D, tol float64) (HandleID, bool) {
	if len(a.Points) != 2 {
		return 0, false
	}
	r := geometry.RectFromCorners(a.Points[0], a.Points[1])
	for _, h := range handlePositions(r) {
		if p.Distance(h.Pos) <= tol {
			return h.ID, true
		}
	}
	return 0, false
}

// resizeAnchor returns the point held fixed for the duration of a resize:
// the corner diagonally opposite a corner handle, or for edge handles the
// corner that pins both the opposite edge and the untouched axis.
func resizeAnchor(r geometry.Rect, h HandleID) geometry.Point2D {
	switch h {
	case HandleNW:
		return r.BottomRight()
	case HandleNE:
		return r.BottomLeft()
	case HandleSE:
		return r.TopLeft()
	case HandleSW:
		return r.TopRight()
	case HandleN:
		return r.BottomLeft()
	case HandleS:
		return r.TopLeft()
	case HandleE:
		return r.TopLeft()
	case HandleW:
		return r.TopRight()
	}
	return r.Center()
}

// resizeMoving returns the shape's moving point for the damped pointer
// position. Corner handles track the pointer on both axes; pure edge
// handles track one axis and preserve the other extent of the box.
func resizeMoving(r geometry.Rect, h HandleID, damped geometry.Point2D) geometry.Point2D {
	switch h {
	case HandleN, HandleS:
		return geometry.NewPoint2D(r.X+r.Width, damped.Y)
	case HandleE, HandleW:
		return geometry.NewPoint2D(damped.X, r.Y+r.Height)
	default:
		return damped
	}
}
