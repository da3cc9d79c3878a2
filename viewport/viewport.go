// Package viewport maps the overlay's CSS-pixel geometry onto the device
// pixel canvas.
package viewport

import (
	"image"
	"math"
)

// Viewport is the overlay rectangle on the page together with the device
// pixel ratio used to size its backing canvas.
type Viewport struct {
	// Position of the overlay on the page in CSS pixels
	X, Y float64

	// Overlay size in CSS pixels
	CSSW, CSSH float64

	// Effective device pixel ratio (requested ratio capped by MaxDPR)
	DPR    float64
	MaxDPR float64
}

// New creates a viewport at (x, y) on the page. dpr is capped at maxDPR.
func New(x, y, cssW, cssH, dpr, maxDPR float64) *Viewport {
	v := &Viewport{X: x, Y: y, MaxDPR: maxDPR}
	v.Resize(cssW, cssH, dpr)
	return v
}

// Resize updates the CSS size and device pixel ratio. Returns whether the
// device pixel size changed, i.e. whether buffers need reallocating.
func (v *Viewport) Resize(cssW, cssH, dpr float64) bool {
	oldW, oldH := v.PixelSize()

	v.CSSW = nonNegative(cssW)
	v.CSSH = nonNegative(cssH)
	v.DPR = capDPR(dpr, v.MaxDPR)

	w, h := v.PixelSize()
	return w != oldW || h != oldH
}

// Move repositions the overlay on the page.
func (v *Viewport) Move(x, y float64) {
	v.X, v.Y = x, y
}

// PixelSize returns the canvas size in device pixels.
func (v *Viewport) PixelSize() (w, h int) {
	return int(math.Round(v.CSSW * v.DPR)), int(math.Round(v.CSSH * v.DPR))
}

// Region returns the overlay rectangle on the page in whole CSS pixels.
func (v *Viewport) Region() image.Rectangle {
	x0 := int(math.Floor(v.X))
	y0 := int(math.Floor(v.Y))
	return image.Rect(x0, y0, x0+int(math.Round(v.CSSW)), y0+int(math.Round(v.CSSH)))
}

// Empty reports whether the viewport has no device pixels.
func (v *Viewport) Empty() bool {
	w, h := v.PixelSize()
	return w < 1 || h < 1
}

// capDPR clamps a requested ratio into (0, maxDPR]. Invalid ratios become 1.
func capDPR(dpr, maxDPR float64) float64 {
	if math.IsNaN(dpr) || math.IsInf(dpr, 0) || dpr <= 0 {
		dpr = 1
	}
	if maxDPR > 0 && dpr > maxDPR {
		return maxDPR
	}
	return dpr
}

func nonNegative(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return 0
	}
	return x
}
