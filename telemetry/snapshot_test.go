package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/rainglass/components"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Seed:    42,
		Width:   640,
		Height:  480,
		Frame:   1000,
		SimTime: 16.6,
		Droplets: []DropletState{
			{X: 150, Y: 250, VX: 0.1, VY: 1.2, Mass: 36, Stretch: 1.2, Stickiness: 0.1, Seed: 7, Shape: "teardrop"},
			{X: 20, Y: 40, Mass: 4, Stretch: 1, Seed: 8, Shape: "irregular"},
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if path != filepath.Join(tmpDir, "snapshot_1000.json") {
		t.Errorf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file not created: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Seed != 42 || loaded.Frame != 1000 || loaded.Width != 640 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if len(loaded.Droplets) != 2 {
		t.Fatalf("droplets = %d, want 2", len(loaded.Droplets))
	}
	if loaded.Droplets[0] != snapshot.Droplets[0] {
		t.Errorf("droplet = %+v, want %+v", loaded.Droplets[0], snapshot.Droplets[0])
	}
}

func TestLoadSnapshotVersionMismatch(t *testing.T) {
	tmpDir := t.TempDir()
	path, err := SaveSnapshot(&Snapshot{Version: SnapshotVersion + 1, Frame: 1}, tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
	if _, err := LoadSnapshot(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDropletStateRoundTrip(t *testing.T) {
	d := components.Droplet{Stretch: 1.3, Stickiness: 0.2, Shift: -0.1, NextTrail: 12, Seed: 99, TrailChild: true, ShrinkRate: 2}
	d.SetMass(25)

	state := NewDropletState(components.Position{X: 10, Y: 20}, components.Velocity{Y: 2}, d, components.ShapeIrregularStatic)
	pos, vel, got, shape := state.Components()

	if pos.X != 10 || pos.Y != 20 || vel.Y != 2 {
		t.Errorf("pos/vel = %+v %+v", pos, vel)
	}
	if got.Radius != 5 || got.Mass != 25 {
		t.Errorf("radius/mass = %v/%v, want 5/25", got.Radius, got.Mass)
	}
	if got.LastTrailX != 10 || got.LastTrailY != 20 {
		t.Error("trail anchor should reset to the saved position")
	}
	if !got.TrailChild || got.Seed != 99 || got.ShrinkRate != 2 {
		t.Errorf("droplet = %+v", got)
	}
	if shape != components.ShapeIrregularStatic {
		t.Errorf("shape = %v", shape)
	}
}
