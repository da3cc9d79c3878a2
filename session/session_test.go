package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/jitter"
	"github.com/pthm-cable/rainglass/telemetry"
)

func testConfig(testMode bool) *config.Config {
	cfg := config.MustLoad("")
	cfg.Canvas.Width = 160
	cfg.Canvas.Height = 160
	cfg.Canvas.DPR = 1
	cfg.Render.BlurStrength = 2
	cfg.TestMode = testMode
	cfg.Validate()
	return cfg
}

func pageProvider(w, h int) capture.Provider {
	page := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			page.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 120, 255})
		}
	}
	return capture.NewImageProvider(page)
}

// runFrames drives n frames at 60 Hz starting at the epoch.
func runFrames(t *testing.T, s *Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Frame(epoch.Add(time.Duration(i) * time.Second / 60)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestSessionTestModeDoesNotAutoStart(t *testing.T) {
	calls := 0
	provider := capture.ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		calls++
		return image.NewRGBA(rect), nil
	})
	s := New(testConfig(true), Options{Provider: provider})

	if err := s.SetOpen(context.Background(), true); err != nil {
		t.Fatalf("SetOpen: %v", err)
	}
	st := s.Stats()
	if !st.Open || st.Running {
		t.Errorf("stats = %+v, want open and not running", st)
	}
	if calls != 0 || s.HasBackground() {
		t.Error("test mode must not capture")
	}
	if cfg := s.Config(); cfg.Render.Fog || cfg.Trail.Enabled || cfg.Condensation.Enabled {
		t.Error("test mode should turn off randomized visuals")
	}
}

func TestSessionSpawnsAndRuns(t *testing.T) {
	s := New(testConfig(true), Options{})
	s.SetOpen(context.Background(), true)
	s.Start()

	runFrames(t, s, 180)

	st := s.Stats()
	if st.Droplets == 0 {
		t.Error("expected droplets after three seconds of rain")
	}
	if st.Droplets > s.Config().Spawn.MaxPopulation {
		t.Errorf("population %d above cap", st.Droplets)
	}
	// The first frame has a zero delta but still counts
	if st.Frame != 180 {
		t.Errorf("frame = %d, want 180", st.Frame)
	}
	if st.Width != 160 || st.Height != 160 {
		t.Errorf("canvas = %dx%d, want 160x160", st.Width, st.Height)
	}
}

func TestSessionStopIdempotent(t *testing.T) {
	s := New(testConfig(true), Options{})
	s.Start()
	runFrames(t, s, 120)

	for i := 0; i < 2; i++ {
		s.Stop()
		st := s.Stats()
		if st.Droplets != 0 || st.Running {
			t.Fatalf("after stop %d: %+v", i+1, st)
		}
		for _, v := range s.Canvas().Pix {
			if v != 0 {
				t.Fatalf("after stop %d: canvas not cleared", i+1)
			}
		}
	}
}

func TestSessionTestModeRenderDeterministic(t *testing.T) {
	s := New(testConfig(true), Options{})
	s.Start()
	runFrames(t, s, 90)
	s.Pause()

	s.Render()
	first := bytes.Clone(s.Canvas().Pix)
	s.Render()
	if !bytes.Equal(first, s.Canvas().Pix) {
		t.Error("two renders without a tick differ")
	}
}

func TestSessionTestModeReplays(t *testing.T) {
	run := func() []byte {
		s := New(testConfig(true), Options{Random: jitter.New(99)})
		s.Start()
		runFrames(t, s, 60)
		return bytes.Clone(s.Canvas().Pix)
	}
	if !bytes.Equal(run(), run()) {
		t.Error("test mode runs are not reproducible")
	}
}

func TestSessionCaptureFailureDegrades(t *testing.T) {
	failing := capture.ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		return nil, errors.New("tainted canvas")
	})
	s := New(testConfig(false), Options{Provider: failing, Random: jitter.New(3)})

	err := s.SetOpen(context.Background(), true)
	if err == nil {
		t.Fatal("expected capture error")
	}
	if s.HasBackground() {
		t.Error("hasBackground should be false after a failed capture")
	}
	if !s.Stats().Running {
		t.Fatal("effect should still start without a background")
	}
	runFrames(t, s, 30)
}

func TestSessionOpenCapturesBackground(t *testing.T) {
	s := New(testConfig(false), Options{Provider: pageProvider(400, 400), Random: jitter.New(5)})
	if err := s.SetOpen(context.Background(), true); err != nil {
		t.Fatalf("SetOpen: %v", err)
	}
	if !s.HasBackground() {
		t.Fatal("expected a background")
	}
	runFrames(t, s, 10)

	if err := s.SetOpen(context.Background(), false); err != nil {
		t.Fatalf("close: %v", err)
	}
	st := s.Stats()
	if st.Running || st.Droplets != 0 || st.HasBackground {
		t.Errorf("closed session state = %+v", st)
	}
}

func TestSessionStaleCaptureDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := capture.ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		close(started)
		<-release
		return image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy())), nil
	})
	s := New(testConfig(false), Options{Provider: provider, Random: jitter.New(1)})

	done := make(chan error, 1)
	go func() { done <- s.SetOpen(context.Background(), true) }()

	<-started
	s.SetOpen(context.Background(), false)
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("SetOpen: %v", err)
	}
	st := s.Stats()
	if st.HasBackground {
		t.Error("capture resolved after close must be discarded")
	}
	if st.Running || st.Open {
		t.Errorf("closed session restarted: %+v", st)
	}
}

func TestSessionResizeDebounced(t *testing.T) {
	cfg := testConfig(false)
	cfg.Driver.ResizeDebounce = 0.05
	var calls atomic.Int32
	inner := pageProvider(400, 400)
	provider := capture.ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		calls.Add(1)
		return inner.Snapshot(ctx, rect, scale)
	})
	s := New(cfg, Options{Provider: provider, Random: jitter.New(2)})
	if err := s.SetOpen(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	s.Resize(100, 80, 1)
	s.Resize(120, 90, 1)
	s.Resize(140, 100, 2)

	// Buffers follow at once, capped at max_dpr 2
	if st := s.Stats(); st.Width != 280 || st.Height != 200 {
		t.Errorf("canvas = %dx%d, want 280x200", st.Width, st.Height)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Errorf("captures = %d, want 2 (open + one debounced resize)", got)
	}
	if !s.HasBackground() {
		t.Error("expected a background after re-capture")
	}
	runFrames(t, s, 5)
	s.Close()
}

func TestSessionSnapshotRestore(t *testing.T) {
	s := New(testConfig(true), Options{})
	s.Start()
	runFrames(t, s, 120)
	snap := s.Snapshot()
	if len(snap.Droplets) == 0 {
		t.Fatal("expected droplets in the snapshot")
	}

	other := New(testConfig(true), Options{})
	if n := other.Restore(snap); n != len(snap.Droplets) {
		t.Errorf("restored %d, want %d", n, len(snap.Droplets))
	}
	if other.Stats().Frame != snap.Frame {
		t.Error("frame counter not restored")
	}
}

func TestSessionTuneAndRecapture(t *testing.T) {
	var calls atomic.Int32
	inner := pageProvider(400, 400)
	provider := capture.ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		calls.Add(1)
		return inner.Snapshot(ctx, rect, scale)
	})
	s := New(testConfig(false), Options{Provider: provider, Random: jitter.New(4)})

	// Closed sessions do not capture
	if err := s.Recapture(context.Background()); err != nil || calls.Load() != 0 {
		t.Fatalf("recapture while closed: err=%v calls=%d", err, calls.Load())
	}

	if err := s.SetOpen(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	s.Tune(func(cfg *config.Config) {
		cfg.Render.BlurStrength = 6
		cfg.Physics.Gravity = -1 // invalid, restored by validation
	})
	if got := s.Config().Render.BlurStrength; got != 6 {
		t.Errorf("blur strength = %v, want 6", got)
	}
	if s.Config().Physics.Gravity < 0 {
		t.Error("tuned config was not revalidated")
	}
	if err := s.Recapture(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("captures = %d, want 2", got)
	}
	s.Close()
}

func TestSessionStatsCallback(t *testing.T) {
	cfg := testConfig(true)
	cfg.Telemetry.StatsWindow = 1
	var windows []telemetry.WindowStats
	s := New(cfg, Options{OnStats: func(ws telemetry.WindowStats) {
		windows = append(windows, ws)
	}})
	s.Start()
	for i := 0; i < 300; i++ {
		s.Tick(1.0 / 60)
	}

	if len(windows) < 4 {
		t.Fatalf("windows = %d, want about 5", len(windows))
	}
	last := windows[len(windows)-1]
	if last.Droplets == 0 || last.Spawned == 0 {
		t.Errorf("last window = %+v, want rain", last)
	}
}

func TestSessionRestoreRunawayDroplet(t *testing.T) {
	cfg := testConfig(false)
	s := New(cfg, Options{Random: jitter.New(6)})
	if !s.Config().Trail.Enabled {
		t.Fatal("trails must be on for this run")
	}

	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Droplets: []telemetry.DropletState{
			{X: 80, Y: 40, VX: 1e30, VY: 1e30, Mass: 25, Stretch: 1, Stickiness: 0.1, NextTrail: 1, MotionTimer: 1, Seed: 1, Shape: "teardrop"},
			{X: 1e30, Y: 1e30, Mass: 16, Stretch: 1, Stickiness: 0.1, NextTrail: 1, MotionTimer: 1, Seed: 2, Shape: "teardrop"},
		},
	}
	if n := s.Restore(snap); n != 2 {
		t.Fatalf("restored %d, want 2", n)
	}

	s.Start()
	for i := 0; i < 2; i++ {
		if err := s.Frame(epoch.Add(time.Duration(i) * 16 * time.Millisecond)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if !s.Stats().Running {
		t.Error("one runaway droplet stopped the effect")
	}
}

func TestSessionTuneRebuildsCaches(t *testing.T) {
	s := New(testConfig(true), Options{})
	if got := s.sim.grid.Len(); got != 16 {
		t.Fatalf("cells = %d, want 16 for 48 px cells on 160 px", got)
	}

	s.Tune(func(cfg *config.Config) {
		cfg.Physics.GridCellSize = 80
		cfg.Physics.MaxDT = 0.05
		cfg.Trail.Decay = 0.9
		cfg.Trail.Diffuse = 0.1
	})

	if got := s.sim.grid.Len(); got != 4 {
		t.Errorf("cells = %d, want 4 after retuning the cell size", got)
	}
	if s.sim.trail.Decay != 0.9 || s.sim.trail.Diffuse != 0.1 {
		t.Errorf("trail decay/diffuse = %v/%v", s.sim.trail.Decay, s.sim.trail.Diffuse)
	}
	if s.driver.maxDT != 0.05 {
		t.Errorf("driver max dt = %v, want 0.05", s.driver.maxDT)
	}
	s.Start()
	runFrames(t, s, 30)
}

func TestSessionResizeToZeroDropsBackground(t *testing.T) {
	var calls atomic.Int32
	inner := pageProvider(400, 400)
	provider := capture.ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		calls.Add(1)
		return inner.Snapshot(ctx, rect, scale)
	})
	cfg := testConfig(false)
	cfg.Driver.ResizeDebounce = 0.01
	s := New(cfg, Options{Provider: provider, Random: jitter.New(8)})
	if err := s.SetOpen(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	s.Resize(0, 80, 1)
	if s.HasBackground() {
		t.Error("a zero-width overlay should have no background")
	}
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("captures = %d, want only the one from opening", got)
	}
	s.Close()
}
