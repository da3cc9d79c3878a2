package session

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fakeScene struct {
	dts     []float64
	renders int
	resets  int
	panicOn int // tick number that panics, 0 = never
}

func (f *fakeScene) Tick(dt float64) {
	f.dts = append(f.dts, dt)
	if f.panicOn > 0 && len(f.dts) == f.panicOn {
		panic("boom")
	}
}

func (f *fakeScene) Render() { f.renders++ }
func (f *fakeScene) Reset()  { f.resets++ }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestDriverStoppedByDefault(t *testing.T) {
	scene := &fakeScene{}
	d := NewDriver(scene, 0.08)
	if d.Running() {
		t.Fatal("new driver should not be running")
	}
	if err := d.Frame(at(0)); !errors.Is(err, ErrStopped) {
		t.Errorf("err = %v, want ErrStopped", err)
	}
	if len(scene.dts) != 0 || scene.renders != 0 {
		t.Error("stopped driver must not tick or render")
	}
}

func TestDriverClampsDelta(t *testing.T) {
	scene := &fakeScene{}
	d := NewDriver(scene, 0.08)
	d.Start()

	for _, ms := range []int{0, 16, 32, 1032} {
		if err := d.Frame(at(ms)); err != nil {
			t.Fatalf("Frame(%d): %v", ms, err)
		}
	}

	want := []float64{0, 0.016, 0.016, 0.08}
	if len(scene.dts) != len(want) {
		t.Fatalf("ticks = %d, want %d", len(scene.dts), len(want))
	}
	for i, w := range want {
		if math.Abs(scene.dts[i]-w) > 1e-9 {
			t.Errorf("dt[%d] = %v, want %v", i, scene.dts[i], w)
		}
	}
	if scene.renders != 4 {
		t.Errorf("renders = %d, want 4", scene.renders)
	}
}

func TestDriverPauseResume(t *testing.T) {
	scene := &fakeScene{}
	d := NewDriver(scene, 0.08)
	d.Start()
	d.Frame(at(0))
	d.Frame(at(16))

	d.Pause()
	if !d.Paused() {
		t.Fatal("expected paused")
	}
	if err := d.Frame(at(32)); err != nil {
		t.Errorf("paused frame err = %v", err)
	}
	if len(scene.dts) != 2 {
		t.Errorf("paused driver ticked: %d ticks", len(scene.dts))
	}
	if scene.resets != 0 {
		t.Error("pause must not reset the scene")
	}

	d.Resume()
	d.Frame(at(5000))
	d.Frame(at(5016))
	// The pause itself is not simulated
	if got := scene.dts[2]; got != 0 {
		t.Errorf("first dt after resume = %v, want 0", got)
	}
	if math.Abs(scene.dts[3]-0.016) > 1e-9 {
		t.Errorf("dt = %v, want 0.016", scene.dts[3])
	}
}

func TestDriverStopIdempotent(t *testing.T) {
	scene := &fakeScene{}
	d := NewDriver(scene, 0.08)
	d.Start()
	d.Frame(at(0))

	d.Stop()
	d.Stop()
	if d.Running() {
		t.Error("driver still running after Stop")
	}
	if scene.resets != 2 {
		t.Errorf("resets = %d, want 2", scene.resets)
	}
	if err := d.Frame(at(16)); !errors.Is(err, ErrStopped) {
		t.Errorf("err = %v, want ErrStopped", err)
	}
}

func TestDriverFaultStops(t *testing.T) {
	scene := &fakeScene{panicOn: 3}
	d := NewDriver(scene, 0.08)
	d.Start()

	frames := make(chan time.Time, 10)
	for i := 0; i < 10; i++ {
		frames <- at(i * 16)
	}
	close(frames)

	err := d.Run(context.Background(), frames)
	if !errors.Is(err, ErrFrameFault) {
		t.Fatalf("Run err = %v, want ErrFrameFault", err)
	}
	if d.Running() {
		t.Error("driver should stop after a fault")
	}
	if !errors.Is(d.Err(), ErrFrameFault) {
		t.Errorf("Err() = %v", d.Err())
	}
	if len(scene.dts) != 3 {
		t.Errorf("ticks = %d, want 3 (no frames after the fault)", len(scene.dts))
	}

	// Restart clears the fault
	scene.panicOn = 0
	d.Start()
	if d.Err() != nil {
		t.Error("Start should clear the fault")
	}
	if err := d.Frame(at(500)); err != nil {
		t.Errorf("frame after restart: %v", err)
	}
}

func TestDriverRunEnds(t *testing.T) {
	t.Run("closed channel", func(t *testing.T) {
		d := NewDriver(&fakeScene{}, 0.08)
		d.Start()
		frames := make(chan time.Time)
		close(frames)
		if err := d.Run(context.Background(), frames); err != nil {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("stopped", func(t *testing.T) {
		d := NewDriver(&fakeScene{}, 0.08)
		frames := make(chan time.Time, 1)
		frames <- at(0)
		if err := d.Run(context.Background(), frames); err != nil {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		d := NewDriver(&fakeScene{}, 0.08)
		d.Start()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := d.Run(ctx, make(chan time.Time)); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}
