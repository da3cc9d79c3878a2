// Package telemetry provides frame timing, window statistics, CSV output
// and droplet state snapshots.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/rainglass/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the droplet population of a session for replay.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Width  int `json:"width"`
	Height int `json:"height"`

	Frame   uint64  `json:"frame"`
	SimTime float64 `json:"sim_time"`

	Droplets []DropletState `json:"droplets"`
}

// DropletState holds one droplet's complete state.
type DropletState struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	Mass        float64 `json:"mass"`
	Stretch     float64 `json:"stretch"`
	Stickiness  float64 `json:"stickiness"`
	Resistance  float64 `json:"resistance"`
	Shift       float64 `json:"shift"`
	NextTrail   float64 `json:"next_trail"`
	MotionTimer float64 `json:"motion_timer"`
	ShrinkRate  float64 `json:"shrink_rate,omitempty"`
	TrailChild  bool    `json:"trail_child,omitempty"`
	Seed        int64   `json:"seed"`

	Shape string `json:"shape"`
}

// NewDropletState captures a droplet from its components.
func NewDropletState(pos components.Position, vel components.Velocity, d components.Droplet, shape components.ShapeState) DropletState {
	return DropletState{
		X:           pos.X,
		Y:           pos.Y,
		VX:          vel.X,
		VY:          vel.Y,
		Mass:        d.Mass,
		Stretch:     d.Stretch,
		Stickiness:  d.Stickiness,
		Resistance:  d.Resistance,
		Shift:       d.Shift,
		NextTrail:   d.NextTrail,
		MotionTimer: d.MotionTimer,
		ShrinkRate:  d.ShrinkRate,
		TrailChild:  d.TrailChild,
		Seed:        d.Seed,
		Shape:       shape.String(),
	}
}

// Components rebuilds the droplet components. The trail anchor is reset to
// the saved position.
func (s DropletState) Components() (components.Position, components.Velocity, components.Droplet, components.ShapeState) {
	d := components.Droplet{
		Stretch:     s.Stretch,
		Stickiness:  s.Stickiness,
		Resistance:  s.Resistance,
		Shift:       s.Shift,
		LastTrailX:  s.X,
		LastTrailY:  s.Y,
		NextTrail:   s.NextTrail,
		MotionTimer: s.MotionTimer,
		ShrinkRate:  s.ShrinkRate,
		TrailChild:  s.TrailChild,
		Seed:        s.Seed,
	}
	d.SetMass(s.Mass)

	state := components.ShapeTeardrop
	if s.Shape == components.ShapeIrregularStatic.String() {
		state = components.ShapeIrregularStatic
	}
	return components.Position{X: s.X, Y: s.Y}, components.Velocity{X: s.VX, Y: s.VY}, d, state
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Frame))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
