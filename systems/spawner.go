package systems

import (
	"github.com/pthm-cable/rainglass/components"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/jitter"
)

// NewDroplet returns a droplet of radius r with randomized stickiness,
// bias and timers.
func NewDroplet(r float64, cfg *config.Config, rng *jitter.Source) components.Droplet {
	p := &cfg.Physics
	d := components.Droplet{
		Stretch:     1,
		Stickiness:  clampf(p.AdhesionBase+rng.Float64()*p.AdhesionJitter, 0, 0.95),
		Resistance:  rng.Float64() * p.ResistanceBase,
		Shift:       rng.Signed(p.ShiftRange),
		NextTrail:   r * rng.Range(cfg.Trail.DistanceMin, cfg.Trail.DistanceMax),
		MotionTimer: rng.Range(p.MotionIntervalMin, p.MotionIntervalMax),
		Seed:        rng.Int63(),
	}
	d.SetMass(components.MassForRadius(r))
	return d
}

// Spawner creates new droplets for each size tier at its configured rate.
type Spawner struct {
	cfg           *config.Config
	width, height float64
}

// NewSpawner creates a spawner for a canvas size in device pixels.
func NewSpawner(cfg *config.Config, width, height float64) *Spawner {
	return &Spawner{cfg: cfg, width: width, height: height}
}

// Resize changes the spawn area.
func (s *Spawner) Resize(width, height float64) {
	s.width, s.height = width, height
}

// Update draws a Poisson count of new droplets per tier for dt seconds and
// adds them to the store. Spawning stops at the population cap; nothing is
// carried over to later ticks. Returns the number spawned.
func (s *Spawner) Update(store *DropletStore, dt float64, rng *jitter.Source) int {
	limit := s.cfg.Spawn.MaxPopulation
	if store.Count() >= limit || !(dt > 0) {
		return 0
	}

	spawned := 0
	for _, tier := range s.cfg.Spawn.Tiers {
		n := rng.Poisson(tier.Rate * dt)
		for i := 0; i < n; i++ {
			if store.Count() >= limit {
				return spawned
			}
			s.spawn(store, tier, rng)
			spawned++
		}
	}
	return spawned
}

func (s *Spawner) spawn(store *DropletStore, tier config.SpawnTier, rng *jitter.Source) {
	r := rng.Range(tier.MinRadius, tier.MaxRadius)
	x := rng.Range(0, s.width)
	y := -r
	if tier.Anywhere {
		y = rng.Range(0, s.height)
	}
	store.Spawn(x, y, components.Velocity{}, NewDroplet(r, s.cfg, rng))
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
