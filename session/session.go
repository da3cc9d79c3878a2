// Package session ties the effect together for a host: it owns the
// droplet simulation, compositor and background capture, reacts to the
// open/close toggle and resize signals, and drives frames.
package session

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/jitter"
	"github.com/pthm-cable/rainglass/telemetry"
	"github.com/pthm-cable/rainglass/viewport"
)

// TestSeed is the random seed used in test mode.
const TestSeed = 1

// Options carries the collaborators injected into a Session.
type Options struct {
	// Provider snapshots the page behind the overlay. May be nil, in which
	// case droplets render without a background.
	Provider capture.Provider

	// Random is the simulation's random source. Defaults to one seeded
	// from config (or the clock when the seed is 0). Ignored in test mode.
	Random *jitter.Source

	// Region is the overlay rectangle on the page in CSS pixels. Defaults
	// to the configured canvas size at the origin.
	Region image.Rectangle

	Output   *telemetry.OutputManager
	LogStats bool

	// OnStats, if set, receives every flushed telemetry window.
	OnStats func(telemetry.WindowStats)
}

// Stats is a point-in-time summary of a session.
type Stats struct {
	Open          bool
	Running       bool
	Paused        bool
	HasBackground bool
	Droplets      int
	Frame         uint64
	SimTime       float64
	Width, Height int
}

// Session is the host-facing effect. Methods are safe for concurrent use.
type Session struct {
	mu  sync.Mutex
	cfg *config.Config

	view   *viewport.Viewport
	buffer *capture.Buffer
	sim    *simulation
	driver *Driver

	open        bool
	generation  uint64 // bumped on every open/close transition
	captureSeq  uint64 // bumped on every capture request
	resizeTimer *time.Timer
}

// New creates a closed session. cfg must be validated; in test mode the
// session works on a copy with randomized visuals turned off.
func New(cfg *config.Config, opts Options) *Session {
	if cfg.TestMode {
		c := *cfg
		c.Render.Fog = false
		c.Trail.Enabled = false
		c.Condensation.Enabled = false
		cfg = &c
	}

	rng := opts.Random
	switch {
	case cfg.TestMode:
		rng = jitter.New(TestSeed)
	case rng == nil && cfg.Seed != 0:
		rng = jitter.New(cfg.Seed)
	case rng == nil:
		rng = jitter.New(time.Now().UnixNano())
	}

	region := opts.Region
	if region.Empty() {
		region = image.Rect(0, 0, int(cfg.Canvas.Width), int(cfg.Canvas.Height))
	}
	view := viewport.New(float64(region.Min.X), float64(region.Min.Y),
		float64(region.Dx()), float64(region.Dy()), cfg.Canvas.DPR, cfg.Canvas.MaxDPR)

	s := &Session{
		cfg:    cfg,
		view:   view,
		buffer: capture.NewBuffer(opts.Provider, &cfg.Render),
	}
	w, h := view.PixelSize()
	s.sim = newSimulation(cfg, rng, s.buffer, w, h)
	s.sim.output = opts.Output
	s.sim.logStats = opts.LogStats
	s.sim.onStats = opts.OnStats
	s.driver = NewDriver(s.sim, cfg.Physics.MaxDT)
	return s
}

// Config returns the configuration the session runs with.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// SetOpen handles the host toggle. Opening captures the background and
// then starts the animation, except in test mode where neither happens.
// Closing stops and clears everything; a capture still in flight is
// discarded when it completes. A capture failure is returned, but the
// effect still opens without a background.
func (s *Session) SetOpen(ctx context.Context, open bool) error {
	s.mu.Lock()
	if open == s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = open
	s.generation++
	gen := s.generation

	if !open {
		s.captureSeq++
		s.stopResizeTimer()
		s.driver.Stop()
		s.buffer.Clear()
		s.mu.Unlock()
		slog.Info("session closed")
		return nil
	}

	if s.cfg.TestMode {
		s.mu.Unlock()
		slog.Info("session opened", "test_mode", true)
		return nil
	}

	s.captureSeq++
	seq := s.captureSeq
	region, scale := s.view.Region(), s.view.DPR
	s.mu.Unlock()

	err := s.capture(ctx, seq, region, scale)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.driver.Start()
	slog.Info("session opened", "background", s.buffer.HasBackground())
	return err
}

// capture builds a background outside the lock and publishes it only if
// no newer capture or close happened meanwhile.
func (s *Session) capture(ctx context.Context, seq uint64, region image.Rectangle, scale float64) error {
	bg, err := s.buffer.Build(ctx, region, scale)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.captureSeq {
		slog.Debug("capture discarded", "seq", seq)
		return nil
	}
	if err != nil {
		s.buffer.Clear()
		slog.Warn("capture failed", "error", err)
		return err
	}
	s.buffer.Publish(bg)
	return nil
}

// Resize applies a new overlay size and device pixel ratio. Buffers are
// reallocated at once; the background re-capture is debounced so only the
// last of a burst of resizes is honored. Collapsing to zero size drops the
// background without scheduling a capture.
func (s *Session) Resize(cssW, cssH, dpr float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.view.Resize(cssW, cssH, dpr) {
		return
	}
	w, h := s.view.PixelSize()
	s.driver.Do(func() { s.sim.Resize(w, h) })

	if !s.open || s.cfg.TestMode {
		return
	}
	s.stopResizeTimer()
	if s.view.Empty() {
		// Nothing to capture until the overlay has pixels again
		s.captureSeq++
		s.buffer.Clear()
		return
	}
	gen := s.generation
	delay := time.Duration(s.cfg.Driver.ResizeDebounce * float64(time.Second))
	s.resizeTimer = time.AfterFunc(delay, func() { s.recapture(gen) })
}

func (s *Session) recapture(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || !s.open {
		s.mu.Unlock()
		return
	}
	s.captureSeq++
	seq := s.captureSeq
	region, scale := s.view.Region(), s.view.DPR
	s.mu.Unlock()

	_ = s.capture(context.Background(), seq, region, scale)
}

// Recapture rebuilds the background for the current region, for example
// after the blur settings changed. It does nothing while closed or in
// test mode.
func (s *Session) Recapture(ctx context.Context) error {
	s.mu.Lock()
	if !s.open || s.cfg.TestMode {
		s.mu.Unlock()
		return nil
	}
	s.captureSeq++
	seq := s.captureSeq
	region, scale := s.view.Region(), s.view.DPR
	s.mu.Unlock()

	return s.capture(ctx, seq, region, scale)
}

// Tune applies fn to the live configuration between frames, revalidates
// it and rebuilds whatever cached the old values. Background settings apply
// from the next capture. Canvas, seed and telemetry window settings only
// take effect in a new session.
func (s *Session) Tune(fn func(cfg *config.Config)) {
	s.driver.Do(func() {
		fn(s.cfg)
		s.cfg.Validate()
		s.sim.retune()
		s.driver.maxDT = s.cfg.Physics.MaxDT
	})
}

func (s *Session) stopResizeTimer() {
	if s.resizeTimer != nil {
		s.resizeTimer.Stop()
		s.resizeTimer = nil
	}
}

// Move repositions the overlay on the page. The background is not
// re-captured until the next open or resize.
func (s *Session) Move(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Move(x, y)
}

// Start begins animating without capturing. Used in test mode, where
// opening does not auto-start.
func (s *Session) Start() { s.driver.Start() }

// Stop halts and clears the effect. Safe to call repeatedly.
func (s *Session) Stop() { s.driver.Stop() }

// Pause freezes the effect in place.
func (s *Session) Pause() { s.driver.Pause() }

// Resume continues after Pause.
func (s *Session) Resume() { s.driver.Resume() }

// Frame advances one animation frame at wall time now.
func (s *Session) Frame(now time.Time) error {
	return s.driver.Frame(now)
}

// Run drives frames from a channel until it closes, the session stops or
// ctx is cancelled.
func (s *Session) Run(ctx context.Context, frames <-chan time.Time) error {
	return s.driver.Run(ctx, frames)
}

// Tick advances the simulation by dt seconds without rendering, whether or
// not the driver is running.
func (s *Session) Tick(dt float64) {
	s.driver.Do(func() { s.sim.Tick(dt) })
}

// Render redraws the canvas from the current state without ticking.
func (s *Session) Render() {
	s.driver.Do(s.sim.Render)
}

// Canvas returns the composited frame. The image is reused across frames
// and replaced on resize; copy it before the next Frame if it must persist.
func (s *Session) Canvas() *image.RGBA {
	var c *image.RGBA
	s.driver.Do(func() { c = s.sim.canvas })
	return c
}

// HasBackground reports whether a captured background is available.
func (s *Session) HasBackground() bool {
	return s.buffer.HasBackground()
}

// Stats returns a summary of the session.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()

	st := Stats{
		Open:          open,
		Running:       s.driver.Running(),
		Paused:        s.driver.Paused(),
		HasBackground: s.buffer.HasBackground(),
	}
	s.driver.Do(func() {
		st.Droplets = s.sim.store.Count()
		st.Frame = s.sim.frame
		st.SimTime = s.sim.simTime
		st.Width, st.Height = s.sim.canvas.Rect.Dx(), s.sim.canvas.Rect.Dy()
	})
	return st
}

// Perf returns frame timing over the perf window.
func (s *Session) Perf() telemetry.PerfStats {
	var ps telemetry.PerfStats
	s.driver.Do(func() { ps = s.sim.perf.Stats() })
	return ps
}

// RecordPresent records a presented frame for FPS reporting.
func (s *Session) RecordPresent() {
	s.driver.Do(s.sim.perf.RecordFrame)
}

// Snapshot captures the droplet population.
func (s *Session) Snapshot() *telemetry.Snapshot {
	var snap *telemetry.Snapshot
	s.driver.Do(func() { snap = s.sim.snapshot() })
	return snap
}

// Restore replaces the droplet population with a snapshot's and returns
// the number of droplets restored.
func (s *Session) Restore(snap *telemetry.Snapshot) int {
	var n int
	s.driver.Do(func() { n = s.sim.restore(snap) })
	return n
}

// Close stops the effect and cancels any pending re-capture.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.generation++
	s.captureSeq++
	s.stopResizeTimer()
	s.driver.Stop()
	s.buffer.Clear()
}
