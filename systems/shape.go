package systems

import (
	"math"

	"github.com/pthm-cable/rainglass/components"
	"github.com/pthm-cable/rainglass/config"
)

// stretchFor returns the vertical elongation for a falling speed.
func stretchFor(vy float64, cfg *config.PhysicsConfig) float64 {
	if !(vy > 0) {
		return 1
	}
	return 1 + math.Min(vy/cfg.StretchSpeed, cfg.MaxStretch-1)
}

// UpdateShape advances the outline state machine for one droplet.
// Slow, round droplets switch to the irregular outline; the switch back
// happens only above the exit speed so droplets hovering near the
// threshold don't flicker. Entering the irregular state marks the
// outline dirty.
func UpdateShape(shape *components.Shape, d *components.Droplet, vel *components.Velocity, cfg *config.PhysicsConfig) {
	d.Stretch = stretchFor(vel.Y, cfg)
	speed := vel.Speed()

	switch shape.State {
	case components.ShapeTeardrop:
		if speed < cfg.StaticSpeedEnter && d.Stretch < 1.05 {
			shape.State = components.ShapeIrregularStatic
			shape.Dirty = true
		}
	case components.ShapeIrregularStatic:
		if speed > cfg.StaticSpeedExit {
			shape.State = components.ShapeTeardrop
		}
	}
}
