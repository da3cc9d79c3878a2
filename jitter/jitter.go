// Package jitter is the single source of randomness for the simulation.
// Every randomized decision goes through a *Source so a fixed seed
// reproduces a run exactly.
package jitter

import (
	"math"
	"math/rand"
)

// Source wraps a seeded generator with the helpers the simulation uses.
type Source struct {
	rng  *rand.Rand
	seed int64
}

// New creates a source with the given seed.
func New(seed int64) *Source {
	return &Source{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() int64 { return s.seed }

// Reset rewinds the source to its initial seed.
func (s *Source) Reset() {
	s.rng.Seed(s.seed)
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Range returns a value in [lo, hi).
func (s *Source) Range(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// Signed returns a value in [-amp, amp).
func (s *Source) Signed(amp float64) float64 {
	return (s.rng.Float64()*2 - 1) * amp
}

// Chance reports true with probability p.
func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	return s.rng.Float64() < p
}

// Int63 returns a non-negative 63-bit integer, used for per-droplet seeds.
func (s *Source) Int63() int64 {
	return s.rng.Int63()
}

// Poisson draws the number of events for an expected count lambda.
// Small lambdas use Knuth's method; large ones round a normal approximation.
func (s *Source) Poisson(lambda float64) int {
	if lambda <= 0 || math.IsNaN(lambda) {
		return 0
	}
	if lambda > 30 {
		n := math.Round(lambda + s.rng.NormFloat64()*math.Sqrt(lambda))
		if n < 0 {
			return 0
		}
		return int(n)
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
