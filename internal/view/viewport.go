// Package view provides the mapping between screen coordinates and image
// coordinates, driven by a pan offset and a zoom scalar.
package view

import (
	"xray-annotator/pkg/geometry"
)

// Zoom factors for a single wheel tick and for discrete zoom controls.
const (
	WheelZoomIn  = 1.1
	WheelZoomOut = 0.9
	StepZoomIn   = 1.25
	StepZoomOut  = 0.8
)

// Viewport holds the pan/zoom state of the drawing surface. The wheel path
// and the button/keyboard path carry separate clamp ranges; both are
// configurable (see internal/config).
type Viewport struct {
	Zoom float64
	Pan  geometry.Point2D

	WheelZoomMin float64
	WheelZoomMax float64
	StepZoomMin  float64
	StepZoomMax  float64
}

// NewViewport returns a viewport at 1:1 zoom with the default clamp ranges.
func NewViewport() *Viewport {
	return &Viewport{
		Zoom:         1.0,
		WheelZoomMin: 0.1,
		WheelZoomMax: 10.0,
		StepZoomMin:  0.2,
		StepZoomMax:  5.0,
	}
}

// ToImage converts a screen-space point to image space.
func (v *Viewport) ToImage(screen geometry.Point2D) geometry.Point2D {
	return screen.Sub(v.Pan).Scale(1 / v.Zoom)
}

// ToScreen converts an image-space point to screen space.
func (v *Viewport) ToScreen(image geometry.Point2D) geometry.Point2D {
	return image.Scale(v.Zoom).Add(v.Pan)
}

// ToImageDistance converts a screen-space distance (e.g. a hit threshold in
// pixels) to image space, so proximity tests are zoom-invariant.
func (v *Viewport) ToImageDistance(screenDist float64) float64 {
	return screenDist / v.Zoom
}

// WheelZoomAt applies a wheel-driven zoom factor centered on the given
// screen position: the image point under the pointer stays put.
func (v *Viewport) WheelZoomAt(screenPos geometry.Point2D, factor float64) {
	v.zoomAt(screenPos, factor, v.WheelZoomMin, v.WheelZoomMax)
}

// StepZoomAt applies a button/keyboard zoom step centered on the given
// screen position, using the step clamp range.
func (v *Viewport) StepZoomAt(screenPos geometry.Point2D, factor float64) {
	v.zoomAt(screenPos, factor, v.StepZoomMin, v.StepZoomMax)
}

func (v *Viewport) zoomAt(screenPos geometry.Point2D, factor, min, max float64) {
	newZoom := geometry.Clamp(v.Zoom*factor, min, max)
	if newZoom == v.Zoom {
		return
	}
	// Solve for the pan that keeps screenPos over the same image point.
	ratio := newZoom / v.Zoom
	v.Pan = screenPos.Sub(screenPos.Sub(v.Pan).Scale(ratio))
	v.Zoom = newZoom
}

// PanBy shifts the pan offset by a screen-space delta.
func (v *Viewport) PanBy(delta geometry.Point2D) {
	v.Pan = v.Pan.Add(delta)
}

// Reset restores 1:1 zoom with no pan.
func (v *Viewport) Reset() {
	v.Zoom = 1.0
	v.Pan = geometry.Point2D{}
}
