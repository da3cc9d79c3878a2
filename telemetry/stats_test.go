package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9},
		{"p above range clamps", []float64{1, 2, 3}, 1.5, 3},
		{"p below range clamps", []float64{1, 2, 3}, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeRadiusStats(t *testing.T) {
	values := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	mean, std, p10, p50, p90 := ComputeRadiusStats(values)

	if math.Abs(mean-5.5) > 0.001 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	// Sample standard deviation of 1..10
	if math.Abs(std-3.0277) > 0.001 {
		t.Errorf("std = %v, want ~3.0277", std)
	}
	if p10 != 1 || p50 != 5 || p90 != 9 {
		t.Errorf("percentiles = %v, %v, %v, want 1, 5, 9", p10, p50, p90)
	}
	if values[0] != 10 {
		t.Error("input slice should not be reordered")
	}
}

func TestComputeRadiusStatsSmall(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeRadiusStats(nil)
	if mean != 0 || std != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}

	mean, std, _, p50, _ = ComputeRadiusStats([]float64{4})
	if mean != 4 || std != 0 || p50 != 4 {
		t.Errorf("single value stats = %v, %v, %v", mean, std, p50)
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(2)

	c.RecordSpawns(3)
	c.RecordMerges(1)
	c.RecordRemovals(2)
	c.RecordTrailChildren(1)

	if c.ShouldFlush(1.5) {
		t.Error("window should not flush early")
	}
	if !c.ShouldFlush(2) {
		t.Error("window should flush after its duration")
	}

	stats := c.Flush(Sample{Frame: 120, SimTime: 2, Droplets: 7, Radii: []float64{2, 4}})
	if stats.Spawned != 3 || stats.Merged != 1 || stats.Removed != 2 || stats.TrailChildren != 1 {
		t.Errorf("counters = %+v", stats)
	}
	if stats.WindowEndFrame != 120 || stats.Droplets != 7 || stats.RadiusMean != 3 {
		t.Errorf("sample fields = %+v", stats)
	}

	next := c.Flush(Sample{Frame: 240, SimTime: 4})
	if next.Spawned != 0 || next.WindowStartFrame != 120 {
		t.Errorf("counters not reset: %+v", next)
	}
	if c.ShouldFlush(5) {
		t.Error("new window starts at the last flush")
	}
}
