package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartFrame uint64  `csv:"-"`
	WindowEndFrame   uint64  `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`

	// Population at window end
	Droplets     int `csv:"droplets"`
	Condensation int `csv:"condensation"`

	// Events during window
	Spawned       int `csv:"spawned"`
	Merged        int `csv:"merged"`
	Removed       int `csv:"removed"`
	TrailChildren int `csv:"trail_children"`
	Rollbacks     int `csv:"rollbacks"`
	Condensed     int `csv:"condensed"`

	// Wet area of the trail buffer
	TrailCoverage float64 `csv:"trail_coverage"`

	// Radius distribution (sampled at window end, device px)
	RadiusMean float64 `csv:"radius_mean"`
	RadiusStd  float64 `csv:"radius_std"`
	RadiusP10  float64 `csv:"radius_p10"`
	RadiusP50  float64 `csv:"radius_p50"`
	RadiusP90  float64 `csv:"radius_p90"`
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// p is clamped to [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeRadiusStats calculates mean, sample standard deviation and
// percentiles of droplet radii.
func ComputeRadiusStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	if n == 1 {
		mean = values[0]
	} else {
		mean, std = stat.MeanStdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartFrame),
		slog.Uint64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("droplets", s.Droplets),
		slog.Int("condensation", s.Condensation),
		slog.Int("spawned", s.Spawned),
		slog.Int("merged", s.Merged),
		slog.Int("removed", s.Removed),
		slog.Int("trail_children", s.TrailChildren),
		slog.Int("rollbacks", s.Rollbacks),
		slog.Int("condensed", s.Condensed),
		slog.Float64("trail_coverage", s.TrailCoverage),
		slog.Float64("radius_mean", s.RadiusMean),
		slog.Float64("radius_std", s.RadiusStd),
		slog.Float64("radius_p10", s.RadiusP10),
		slog.Float64("radius_p50", s.RadiusP50),
		slog.Float64("radius_p90", s.RadiusP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndFrame,
		"sim_time", s.SimTimeSec,
		"droplets", s.Droplets,
		"condensation", s.Condensation,
		"spawned", s.Spawned,
		"merged", s.Merged,
		"removed", s.Removed,
		"trail_children", s.TrailChildren,
		"rollbacks", s.Rollbacks,
		"trail_coverage", s.TrailCoverage,
		"radius_mean", s.RadiusMean,
		"radius_p50", s.RadiusP50,
	)
}
