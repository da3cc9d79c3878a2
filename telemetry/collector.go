package telemetry

// Collector accumulates events within time windows and produces WindowStats.
// Windows are measured in simulated seconds since frame deltas vary.
type Collector struct {
	windowDurationSec float64

	windowStartFrame uint64
	windowStartTime  float64

	spawned       int
	merged        int
	removed       int
	trailChildren int
	rollbacks     int
	condensed     int
}

// NewCollector creates a new stats collector with windows of the given
// length in simulated seconds.
func NewCollector(windowDurationSec float64) *Collector {
	if windowDurationSec <= 0 {
		windowDurationSec = 1
	}
	return &Collector{windowDurationSec: windowDurationSec}
}

// RecordSpawns records droplets created by the spawner.
func (c *Collector) RecordSpawns(n int) { c.spawned += n }

// RecordMerges records resolved collisions.
func (c *Collector) RecordMerges(n int) { c.merged += n }

// RecordRemovals records droplets compacted out of the store.
func (c *Collector) RecordRemovals(n int) { c.removed += n }

// RecordTrailChildren records droplets shed from trails.
func (c *Collector) RecordTrailChildren(n int) { c.trailChildren += n }

// RecordRollbacks records integration steps undone by the finite check.
func (c *Collector) RecordRollbacks(n int) { c.rollbacks += n }

// RecordCondensation records condensation points created.
func (c *Collector) RecordCondensation(n int) { c.condensed += n }

// ShouldFlush returns true once the window has covered its duration.
func (c *Collector) ShouldFlush(simTime float64) bool {
	return simTime-c.windowStartTime >= c.windowDurationSec
}

// Sample is the state measured at the end of a window.
type Sample struct {
	Frame         uint64
	SimTime       float64
	Droplets      int
	Condensation  int
	TrailCoverage float64
	Radii         []float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(s Sample) WindowStats {
	mean, std, p10, p50, p90 := ComputeRadiusStats(s.Radii)

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   s.Frame,
		SimTimeSec:       s.SimTime,

		Droplets:     s.Droplets,
		Condensation: s.Condensation,

		Spawned:       c.spawned,
		Merged:        c.merged,
		Removed:       c.removed,
		TrailChildren: c.trailChildren,
		Rollbacks:     c.rollbacks,
		Condensed:     c.condensed,

		TrailCoverage: s.TrailCoverage,

		RadiusMean: mean,
		RadiusStd:  std,
		RadiusP10:  p10,
		RadiusP50:  p50,
		RadiusP90:  p90,
	}

	c.windowStartFrame = s.Frame
	c.windowStartTime = s.SimTime
	c.spawned = 0
	c.merged = 0
	c.removed = 0
	c.trailChildren = 0
	c.rollbacks = 0
	c.condensed = 0

	return stats
}

// Reset discards the current window and starts a new one at simTime.
func (c *Collector) Reset(frame uint64, simTime float64) {
	c.Flush(Sample{Frame: frame, SimTime: simTime})
}
