package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/jitter"
	"github.com/pthm-cable/rainglass/session"
	"github.com/pthm-cable/rainglass/telemetry"
)

// Target describes the look the tuner steers towards.
type Target struct {
	Droplets float64 // Mean live droplets
	Coverage float64 // Mean trail coverage in [0, 1]
	Radius   float64 // Mean droplet radius in device pixels
}

// FitnessEvaluator runs headless sessions and scores them against a target.
type FitnessEvaluator struct {
	params     *ParamVector
	seconds    float64
	seeds      []int64
	baseConfig *config.Config
	target     Target

	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seconds float64, seeds []int64, baseCfg *config.Config, target Target) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		seconds:     seconds,
		seeds:       seeds,
		baseConfig:  baseCfg,
		target:      target,
		bestFitness: math.Inf(1),
	}
}

// BestWindows returns the telemetry windows of the best seed so far.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean quality across seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows := fe.runSimulation(x, s)
			results[idx] = seedResult{
				quality: computeQuality(windows, fe.target),
				windows: windows,
			}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	best := results[0]
	for _, r := range results {
		total += r.quality
		if r.quality > best.quality {
			best = r
		}
	}
	quality := total / float64(len(results))
	fitness := -quality

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestWindows = best.windows
	}
	fe.lastQuality = quality
	fe.mu.Unlock()

	return fitness
}

// runSimulation ticks one headless session for the configured duration and
// returns its telemetry windows. Nothing is rendered.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) []telemetry.WindowStats {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	var windows []telemetry.WindowStats
	s := session.New(cfg, session.Options{
		Random: jitter.New(seed),
		OnStats: func(ws telemetry.WindowStats) {
			windows = append(windows, ws)
		},
	})
	defer s.Close()

	dt := 1.0 / config.ReferenceFPS
	steps := int(fe.seconds / dt)
	for i := 0; i < steps; i++ {
		s.Tick(dt)
	}
	return windows
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Spawn.Tiers = append([]config.SpawnTier(nil), fe.baseConfig.Spawn.Tiers...)
	cfg.TestMode = false
	return &cfg
}

// Quality component weights.
const (
	qualityWeightDroplets  = 0.35
	qualityWeightCoverage  = 0.25
	qualityWeightRadius    = 0.20
	qualityWeightStability = 0.20

	qualityWarmupWindows = 2 // skip the first windows while the glass fills
)

// computeQuality scores windows against target, in [0, 1].
func computeQuality(windows []telemetry.WindowStats, target Target) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	counts := make([]float64, 0, len(valid))
	var dropletSum, coverageSum, radiusSum float64
	for _, w := range valid {
		counts = append(counts, float64(w.Droplets))
		dropletSum += closeness(float64(w.Droplets), target.Droplets, 0.3)
		coverageSum += closeness(w.TrailCoverage, target.Coverage, 0.5)
		radiusSum += closeness(w.RadiusMean, target.Radius, 0.3)
	}
	n := float64(len(valid))

	stability := 0.0
	if len(counts) >= 2 {
		c := cv(counts)
		stability = math.Exp(-c * c * 4)
	}

	quality := qualityWeightDroplets*dropletSum/n +
		qualityWeightCoverage*coverageSum/n +
		qualityWeightRadius*radiusSum/n +
		qualityWeightStability*stability

	return clamp01(quality)
}

// closeness is a Gaussian score of the relative error between got and want;
// width is the relative error scoring exp(-1).
func closeness(got, want, width float64) float64 {
	if want == 0 {
		if got == 0 {
			return 1
		}
		return 0
	}
	rel := (got - want) / (want * width)
	return math.Exp(-rel * rel)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
