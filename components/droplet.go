package components

import "math"

// Droplet holds the physical state of a single water bead.
type Droplet struct {
	Radius float64 // sqrt(Mass), kept in sync by SetMass
	Mass   float64

	Stretch    float64 // Vertical elongation, 1 = round
	Stickiness float64 // Fraction of vertical velocity lost per frame
	Resistance float64 // Current random-motion resistance force
	Shift      float64 // Persistent horizontal bias

	LastTrailX, LastTrailY float64 // Position of the last trail deposit
	NextTrail              float64 // Distance to travel before the next deposit
	MotionTimer            float64 // Seconds until the next random-motion impulse
	ShrinkRate             float64 // Extra mass lost per second (trail children)

	TrailChild bool
	Dead       bool

	// Seed drives per-droplet deterministic variation (outline noise, smudges).
	Seed int64
}

// SetMass updates mass and the derived radius. Non-positive mass kills the droplet.
func (d *Droplet) SetMass(m float64) {
	if m <= 0 || math.IsNaN(m) {
		d.Mass = 0
		d.Radius = 0
		d.Dead = true
		return
	}
	d.Mass = m
	d.Radius = math.Sqrt(m)
}

// MassForRadius returns the mass of a droplet with radius r.
func MassForRadius(r float64) float64 {
	return r * r
}

// ShapeState selects how a droplet outline is drawn.
type ShapeState uint8

const (
	ShapeTeardrop        ShapeState = iota // Smooth bezier teardrop, used while sliding
	ShapeIrregularStatic                   // Cached noisy polygon, used while resting
)

func (s ShapeState) String() string {
	switch s {
	case ShapeTeardrop:
		return "teardrop"
	case ShapeIrregularStatic:
		return "irregular"
	default:
		return "unknown"
	}
}

// OutlinePoints is the number of vertices in an irregular outline.
const OutlinePoints = 16

// Shape holds the render-facing outline state of a droplet.
type Shape struct {
	State ShapeState
	// Outline holds unit-circle offsets scaled by rx/ry at draw time.
	Outline [OutlinePoints]Point
	// Dirty marks the outline for regeneration on the next physics pass.
	Dirty bool
}

func hypot(x, y float64) float64 {
	return math.Sqrt(x*x + y*y)
}
