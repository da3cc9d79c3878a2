package systems

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/rainglass/components"
)

// GustField is a slowly varying horizontal wind perturbation.
type GustField struct {
	noise opensimplex.Noise
	amp   float64
}

// NewGustField creates a gust field with the given amplitude in px per frame.
func NewGustField(seed int64, amp float64) *GustField {
	return &GustField{noise: opensimplex.New(seed), amp: amp}
}

// SetAmplitude changes the gust strength. The noise field is kept.
func (g *GustField) SetAmplitude(amp float64) {
	g.amp = amp
}

// At returns the gust at canvas row y and simulation time t (seconds).
func (g *GustField) At(y, t float64) float64 {
	if g == nil || g.amp == 0 {
		return 0
	}
	return g.amp * g.noise.Eval2(t*0.35, y*0.004)
}

// OutlineNoise builds the irregular outlines of resting droplets.
type OutlineNoise struct {
	noise opensimplex.Noise
}

// NewOutlineNoise creates an outline generator.
func NewOutlineNoise(seed int64) *OutlineNoise {
	return &OutlineNoise{noise: opensimplex.New(seed)}
}

// Regenerate fills shape.Outline with a wobbly unit circle. Points are
// offsets from the droplet center in radii; the lower half bulges a little
// since water pools at the bottom of a resting bead. offset selects a fresh
// slice of the noise field so repeated regenerations differ.
func (o *OutlineNoise) Regenerate(shape *components.Shape, seed int64, offset float64) {
	z := float64(seed%4096)*0.173 + offset
	for i := range shape.Outline {
		theta := 2 * math.Pi * float64(i) / components.OutlinePoints
		c, s := math.Cos(theta), math.Sin(theta)

		scale := 1 + 0.14*o.noise.Eval3(c*1.3, s*1.3, z)
		if s > 0 {
			scale *= 1 + 0.08*s
		}
		shape.Outline[i] = components.Point{X: c * scale, Y: s * scale}
	}
	shape.Dirty = false
}
