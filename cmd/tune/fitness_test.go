package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()

	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: %v != %v", pv.Specs[i].Name, back[i], def[i])
		}
	}

	cfg := config.MustLoad("")
	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if math.Abs(got[i]-spec.Default) > 1e-9 {
			t.Errorf("%s default %v does not match config %v", spec.Name, spec.Default, got[i])
		}
	}
}

func TestApplyToConfigClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.MustLoad("")

	values := pv.DefaultVector()
	values[0] = 99 // gravity above range
	values[len(values)-1] = 22
	pv.ApplyToConfig(cfg, values)

	if cfg.Physics.Gravity != pv.Specs[0].Max {
		t.Errorf("gravity = %v, want clamped to %v", cfg.Physics.Gravity, pv.Specs[0].Max)
	}
	if math.Abs(totalRate(cfg)-22) > 1e-9 {
		t.Errorf("total rate = %v, want 22", totalRate(cfg))
	}
	// Tier proportions are kept
	if r := cfg.Spawn.Tiers[0].Rate / cfg.Spawn.Tiers[1].Rate; math.Abs(r-2) > 1e-9 {
		t.Errorf("tiny/small ratio = %v, want 2", r)
	}
}

func TestComputeQuality(t *testing.T) {
	target := Target{Droplets: 100, Coverage: 0.1, Radius: 4}
	onTarget := telemetry.WindowStats{Droplets: 100, TrailCoverage: 0.1, RadiusMean: 4}

	tests := []struct {
		name    string
		windows []telemetry.WindowStats
		want    float64
	}{
		{"warmup only", []telemetry.WindowStats{onTarget, onTarget}, 0},
		{"on target", []telemetry.WindowStats{{}, {}, onTarget, onTarget, onTarget}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeQuality(tt.windows, target); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("quality = %v, want %v", got, tt.want)
			}
		})
	}

	off := telemetry.WindowStats{Droplets: 20, TrailCoverage: 0.5, RadiusMean: 12}
	worse := computeQuality([]telemetry.WindowStats{{}, {}, off, off, off}, target)
	if worse >= 0.5 {
		t.Errorf("off-target quality = %v, want well below 1", worse)
	}
}

func TestCV(t *testing.T) {
	if got := cv([]float64{5, 5, 5}); got != 0 {
		t.Errorf("cv of constant = %v", got)
	}
	if got := cv([]float64{0, 0}); got != 0 {
		t.Errorf("cv with zero mean = %v", got)
	}
	// Sample std of {1, 3} is sqrt(2); mean 2
	if got := cv([]float64{1, 3}); math.Abs(got-math.Sqrt2/2) > 1e-9 {
		t.Errorf("cv = %v", got)
	}
}

func TestClamp01(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{{-1, 0}, {0.4, 0.4}, {3, 1}} {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%v) = %v", tt.in, got)
		}
	}
}
