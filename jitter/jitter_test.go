package jitter

import (
	"math"
	"testing"
)

func TestSameSeedSameSequence(t *testing.T) {
	a := New(7)
	b := New(7)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("sequences diverged at %d", i)
		}
	}
}

func TestReset(t *testing.T) {
	s := New(42)
	first := []float64{s.Float64(), s.Float64(), s.Float64()}
	s.Reset()
	for i, want := range first {
		if got := s.Float64(); got != want {
			t.Errorf("value %d after reset = %v, want %v", i, got, want)
		}
	}
}

func TestRangeBounds(t *testing.T) {
	s := New(1)
	for i := 0; i < 1000; i++ {
		v := s.Range(2, 5)
		if v < 2 || v >= 5 {
			t.Fatalf("Range out of bounds: %v", v)
		}
		g := s.Signed(3)
		if g < -3 || g >= 3 {
			t.Fatalf("Signed out of bounds: %v", g)
		}
	}
	if v := s.Range(4, 4); v != 4 {
		t.Errorf("degenerate range = %v, want 4", v)
	}
}

func TestChanceExtremes(t *testing.T) {
	s := New(3)
	for i := 0; i < 100; i++ {
		if s.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !s.Chance(1) {
			t.Fatal("Chance(1) returned false")
		}
	}
}

func TestPoissonMean(t *testing.T) {
	s := New(11)
	tests := []float64{0.5, 4, 50}
	for _, lambda := range tests {
		sum := 0
		n := 4000
		for i := 0; i < n; i++ {
			sum += s.Poisson(lambda)
		}
		mean := float64(sum) / float64(n)
		if math.Abs(mean-lambda) > lambda*0.1+0.05 {
			t.Errorf("Poisson(%v) mean = %v", lambda, mean)
		}
	}
	if s.Poisson(0) != 0 || s.Poisson(math.NaN()) != 0 {
		t.Error("expected zero events for non-positive lambda")
	}
}
