// Package components defines ECS components for droplet entities.
package components

// Position is a droplet center in device pixels.
type Position struct {
	X, Y float64
}

// Velocity is in device pixels per reference frame (1/60 s).
type Velocity struct {
	X, Y float64
}

// Speed returns the velocity magnitude.
func (v Velocity) Speed() float64 {
	return hypot(v.X, v.Y)
}

// Point is a 2D offset used by cached outlines.
type Point struct {
	X, Y float64
}
