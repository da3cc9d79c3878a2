package session

import (
	"image"
	"log/slog"

	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/jitter"
	"github.com/pthm-cable/rainglass/renderer"
	"github.com/pthm-cable/rainglass/systems"
	"github.com/pthm-cable/rainglass/telemetry"
)

// simulation owns every piece of per-frame state and implements Scene.
type simulation struct {
	cfg *config.Config
	rng *jitter.Source

	store   *systems.DropletStore
	grid    *systems.SpatialGrid
	physics *systems.Physics
	merger  *systems.Merger
	spawner *systems.Spawner
	trail   *systems.TrailBuffer
	cond    *systems.CondensationField

	comp   *renderer.Compositor
	buffer *capture.Buffer
	canvas *image.RGBA

	frame   uint64
	simTime float64
	ticking bool

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager
	logStats  bool
	onStats   func(telemetry.WindowStats)
	radii     []float64
}

func newSimulation(cfg *config.Config, rng *jitter.Source, buffer *capture.Buffer, w, h int) *simulation {
	fw, fh := float64(w), float64(h)
	return &simulation{
		cfg:       cfg,
		rng:       rng,
		store:     systems.NewDropletStore(),
		grid:      systems.NewSpatialGrid(fw, fh, cfg.Physics.GridCellSize),
		physics:   systems.NewPhysics(cfg, fw, fh, rng.Seed()),
		merger:    systems.NewMerger(&cfg.Physics),
		spawner:   systems.NewSpawner(cfg, fw, fh),
		trail:     systems.NewTrailBuffer(w, h, cfg.Trail.Decay, cfg.Trail.Diffuse),
		cond:      systems.NewCondensationField(&cfg.Condensation, fw, fh),
		comp:      renderer.NewCompositor(cfg, w, h),
		buffer:    buffer,
		canvas:    image.NewRGBA(image.Rect(0, 0, w, h)),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow),
	}
}

// Tick advances the simulation by dt seconds. The phase order is fixed:
// physics, grid and merge, compaction, condensation, trail decay, spawn.
func (s *simulation) Tick(dt float64) {
	dt = systems.ClampDT(dt, s.cfg.Physics.MaxDT)
	s.perf.StartTick()
	s.ticking = true

	s.perf.StartPhase(telemetry.PhasePhysics)
	var trail *systems.TrailBuffer
	if s.cfg.Trail.Enabled {
		trail = s.trail
	}
	s.physics.Update(s.store, dt, s.rng, trail)

	merges := 0
	if s.cfg.Physics.Collisions {
		s.perf.StartPhase(telemetry.PhaseSpatialGrid)
		s.grid.Build(s.store)
		s.perf.StartPhase(telemetry.PhaseMerge)
		merges = s.merger.ResolveGrid(s.store, s.grid)
	} else {
		s.perf.StartPhase(telemetry.PhaseMerge)
	}
	systems.Sanitize(s.store)
	removed := s.store.Compact()

	s.perf.StartPhase(telemetry.PhaseCondensation)
	s.cond.Update(dt, s.rng)

	s.perf.StartPhase(telemetry.PhaseTrail)
	s.trail.Update(dt)

	s.perf.StartPhase(telemetry.PhaseSpawn)
	spawned := s.spawner.Update(s.store, dt, s.rng)

	s.frame++
	s.simTime += dt

	stats := &s.physics.Stats
	s.collector.RecordSpawns(spawned)
	s.collector.RecordMerges(merges)
	s.collector.RecordRemovals(removed)
	s.collector.RecordTrailChildren(stats.Children)
	s.collector.RecordRollbacks(stats.Rollbacks)
	s.collector.RecordCondensation(s.cond.TakeSpawned())
	if s.collector.ShouldFlush(s.simTime) {
		s.flushTelemetry()
	}
}

// Render draws the current state into the canvas. It has no side effects
// on simulation state.
func (s *simulation) Render() {
	if s.ticking {
		s.perf.StartPhase(telemetry.PhaseRender)
	}

	var bg *capture.Background
	if s.buffer != nil {
		bg = s.buffer.Background()
	}
	s.comp.Render(s.canvas, renderer.FrameView{
		Store:        s.store,
		Trail:        s.trail,
		Condensation: s.cond,
		Background:   bg,
		Frame:        s.frame,
	})

	if s.ticking {
		s.perf.EndTick()
		s.ticking = false
	}
}

// Reset drops every droplet, trail and sparkle and clears the canvas.
// In test mode the random source is rewound so a reopened effect replays.
func (s *simulation) Reset() {
	s.store.Clear()
	s.trail.Clear()
	s.cond.Clear()
	clear(s.canvas.Pix)
	s.frame = 0
	s.simTime = 0
	s.ticking = false
	s.collector.Reset(0, 0)
	if s.cfg.TestMode {
		s.rng.Reset()
	}
	// Fresh gust clock and outline noise
	w, h := s.canvas.Rect.Dx(), s.canvas.Rect.Dy()
	s.physics = systems.NewPhysics(s.cfg, float64(w), float64(h), s.rng.Seed())
}

// Resize reallocates every size-dependent buffer. Droplets keep their
// device-pixel positions.
func (s *simulation) Resize(w, h int) {
	fw, fh := float64(w), float64(h)
	s.grid.Resize(fw, fh)
	s.physics.Resize(fw, fh)
	s.spawner.Resize(fw, fh)
	s.cond.Resize(fw, fh)
	s.trail.Resize(w, h)
	s.comp.Resize(w, h)
	s.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
}

// retune pushes the live configuration into the parts that cached values
// at construction.
func (s *simulation) retune() {
	s.trail.Decay = s.cfg.Trail.Decay
	s.trail.Diffuse = s.cfg.Trail.Diffuse
	s.grid.SetCellSize(s.cfg.Physics.GridCellSize)
	s.physics.Retune()
	s.comp.Retune()
}

func (s *simulation) flushTelemetry() {
	s.radii = s.radii[:0]
	query := s.store.Query()
	for query.Next() {
		_, _, d, _ := query.Get()
		s.radii = append(s.radii, d.Radius)
	}

	stats := s.collector.Flush(telemetry.Sample{
		Frame:         s.frame,
		SimTime:       s.simTime,
		Droplets:      s.store.Count(),
		Condensation:  s.cond.Count(),
		TrailCoverage: s.trail.Coverage(),
		Radii:         s.radii,
	})
	perfStats := s.perf.Stats()

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	if s.onStats != nil {
		s.onStats(stats)
	}

	if s.output != nil {
		if err := s.output.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := s.output.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// snapshot captures the droplet population.
func (s *simulation) snapshot() *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Seed:    s.rng.Seed(),
		Width:   s.canvas.Rect.Dx(),
		Height:  s.canvas.Rect.Dy(),
		Frame:   s.frame,
		SimTime: s.simTime,
	}
	query := s.store.Query()
	for query.Next() {
		pos, vel, d, shape := query.Get()
		if d.Dead {
			continue
		}
		snap.Droplets = append(snap.Droplets, telemetry.NewDropletState(*pos, *vel, *d, shape.State))
	}
	return snap
}

// restore replaces the droplet population with the snapshot's. Droplets
// with an invalid mass or size are dropped and the rest are confined to the
// current canvas. Returns the number restored.
func (s *simulation) restore(snap *telemetry.Snapshot) int {
	s.store.Clear()
	for _, ds := range snap.Droplets {
		pos, vel, d, state := ds.Components()
		if d.Dead {
			continue
		}
		e := s.store.Spawn(pos.X, pos.Y, vel, d)
		_, _, _, shape := s.store.Get(e)
		shape.State = state
	}
	s.frame = snap.Frame
	s.simTime = snap.SimTime
	systems.Sanitize(s.store)
	w, h := s.canvas.Rect.Dx(), s.canvas.Rect.Dy()
	if n := systems.Confine(s.store, float64(w), float64(h), s.cfg.Physics.OffscreenMargin); n > 0 {
		slog.Warn("snapshot droplets confined to canvas", "count", n)
	}
	s.store.Compact()
	return s.store.Count()
}
