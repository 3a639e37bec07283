// Package annotation provides the vector shape model drawn over a loaded
// image, including per-kind geometry, measurements, and hit testing.
package annotation

import (
	"math"

	"xray-annotator/pkg/geometry"

	"github.com/oklog/ulid/v2"
)

// Kind identifies the shape of an annotation. The set is closed; Select and
// Eraser exist only as interaction tools and are never stored as shapes.
type Kind string

const (
	KindMarker   Kind = "marker"
	KindBox      Kind = "box"
	KindCircle   Kind = "circle"
	KindEllipse  Kind = "ellipse"
	KindLine     Kind = "line"
	KindRuler    Kind = "ruler"
	KindAngle    Kind = "angle"
	KindText     Kind = "text"
	KindFreehand Kind = "freehand"
)

// Kinds lists every storable annotation kind. Tests iterate this to keep
// per-kind dispatch exhaustive when a kind is added.
var Kinds = []Kind{
	KindMarker, KindBox, KindCircle, KindEllipse, KindLine,
	KindRuler, KindAngle, KindText, KindFreehand,
}

// MarkerRadius is the half-side of the fixed square drawn around a marker
// point, in image-space pixels.
const MarkerRadius = 15.0

// palette assigns each kind its display color at creation time.
var palette = map[Kind]string{
	KindMarker:   "#ff3b30",
	KindBox:      "#ffcc00",
	KindCircle:   "#34c759",
	KindEllipse:  "#5ac8fa",
	KindLine:     "#ff9500",
	KindRuler:    "#00e5ff",
	KindAngle:    "#af52de",
	KindText:     "#ffffff",
	KindFreehand: "#ff2d55",
}

// Annotation is a single vector shape in image-space coordinates.
type Annotation struct {
	ID     string             `json:"id"`
	Kind   Kind               `json:"type"`
	Points []geometry.Point2D `json:"points"`
	Color  string             `json:"color"`
	Text   string             `json:"text,omitempty"`
	Label  string             `json:"label,omitempty"`
	Locked bool               `json:"locked,omitempty"`
}

// New creates an annotation of the given kind with a fresh ID and the
// kind's palette color.
func New(kind Kind, points ...geometry.Point2D) *Annotation {
	return &Annotation{
		ID:     ulid.Make().String(),
		Kind:   kind,
		Points: points,
		Color:  palette[kind],
	}
}

// Clone returns a deep copy of the annotation.
func (a *Annotation) Clone() *Annotation {
	c := *a
	c.Points = make([]geometry.Point2D, len(a.Points))
	copy(c.Points, a.Points)
	return &c
}

// RequiredPoints returns the committed point count for a kind. Freehand has
// no fixed count and returns -1 (it requires at least two points).
func RequiredPoints(kind Kind) int {
	switch kind {
	case KindMarker:
		return 1
	case KindAngle:
		return 3
	case KindFreehand:
		return -1
	default:
		return 2
	}
}

// Valid reports whether the annotation satisfies its kind's point-count
// invariant and may be committed to the collection.
func (a *Annotation) Valid() bool {
	if a.Kind == KindFreehand {
		return len(a.Points) >= 2
	}
	return len(a.Points) == RequiredPoints(a.Kind)
}

// Resizable reports whether the kind supports handle-based resizing.
func (a *Annotation) Resizable() bool {
	switch a.Kind {
	case KindBox, KindEllipse, KindText, KindCircle, KindLine, KindRuler:
		return true
	default:
		return false
	}
}

// Bounds returns the axis-aligned bounding box in image space. Markers use
// a fixed square around their single point.
func (a *Annotation) Bounds() geometry.Rect {
	if a.Kind == KindMarker && len(a.Points) == 1 {
		p := a.Points[0]
		return geometry.NewRect(p.X-MarkerRadius, p.Y-MarkerRadius, 2*MarkerRadius, 2*MarkerRadius)
	}
	return geometry.BoundingBox(a.Points)
}

// Length returns the Euclidean length for line and ruler shapes, 0 otherwise.
func (a *Annotation) Length() float64 {
	if (a.Kind != KindLine && a.Kind != KindRuler) || len(a.Points) != 2 {
		return 0
	}
	return a.Points[0].Distance(a.Points[1])
}

// Radius returns the circle radius, max(|dx|, |dy|)/2 of the two defining
// points. Returns 0 for non-circle shapes.
func (a *Annotation) Radius() float64 {
	if a.Kind != KindCircle || len(a.Points) != 2 {
		return 0
	}
	dx := math.Abs(a.Points[1].X - a.Points[0].X)
	dy := math.Abs(a.Points[1].Y - a.Points[0].Y)
	return math.Max(dx, dy) / 2
}

// Radii returns the ellipse semi-axes (|dx|/2, |dy|/2). Returns zeros for
// non-ellipse shapes.
func (a *Annotation) Radii() (rx, ry float64) {
	if a.Kind != KindEllipse || len(a.Points) != 2 {
		return 0, 0
	}
	rx = math.Abs(a.Points[1].X-a.Points[0].X) / 2
	ry = math.Abs(a.Points[1].Y-a.Points[0].Y) / 2
	return rx, ry
}

// AngleDegrees returns the interior angle at the vertex of an angle shape,
// in degrees. The cosine is clamped to [-1, 1] before acos so floating-point
// overshoot cannot produce NaN. Degenerate rays yield 0.
func (a *Annotation) AngleDegrees() float64 {
	if a.Kind != KindAngle || len(a.Points) != 3 {
		return 0
	}
	v1 := a.Points[0].Sub(a.Points[1])
	v2 := a.Points[2].Sub(a.Points[1])
	l1 := math.Hypot(v1.X, v1.Y)
	l2 := math.Hypot(v2.X, v2.Y)
	if l1 == 0 || l2 == 0 {
		return 0
	}
	cos := geometry.Clamp((v1.X*v2.X+v1.Y*v2.Y)/(l1*l2), -1, 1)
	return math.Acos(cos) * 180 / math.Pi
}

// Size returns the bounding width and height of the shape.
func (a *Annotation) Size() (w, h float64) {
	b := geometry.BoundingBox(a.Points)
	return b.Width, b.Height
}
