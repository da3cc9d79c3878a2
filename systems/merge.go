package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rainglass/components"
	"github.com/pthm-cable/rainglass/config"
)

// Merger coalesces overlapping droplets.
type Merger struct {
	cfg     *config.PhysicsConfig
	scratch []ecs.Entity
}

// NewMerger creates a merger.
func NewMerger(cfg *config.PhysicsConfig) *Merger {
	return &Merger{cfg: cfg}
}

// Resolve rebuilds the grid and merges every pair of live droplets whose
// centers are closer than MergeDistance times their summed radii. The more
// massive droplet survives; the other is marked dead and removed by the
// next Compact. Returns the number of merges.
func (m *Merger) Resolve(store *DropletStore, grid *SpatialGrid) int {
	if !m.cfg.Collisions {
		return 0
	}
	grid.Build(store)
	return m.ResolveGrid(store, grid)
}

// ResolveGrid is Resolve against a grid already built from the store.
func (m *Merger) ResolveGrid(store *DropletStore, grid *SpatialGrid) int {
	if !m.cfg.Collisions {
		return 0
	}

	merges := 0
	for idx := 0; idx < grid.Len(); idx++ {
		for _, a := range grid.Cell(idx) {
			pa, va, da, sa := store.Get(a)
			if da.Dead {
				continue
			}

			m.scratch = grid.Neighbors(m.scratch[:0], idx)
			for _, b := range m.scratch {
				if b == a {
					continue
				}
				pb, vb, db, sb := store.Get(b)
				if db.Dead {
					continue
				}

				dx := pb.X - pa.X
				dy := pb.Y - pa.Y
				limit := m.cfg.MergeDistance * (da.Radius + db.Radius)
				if dx*dx+dy*dy >= limit*limit {
					continue
				}

				merges++
				if db.Mass > da.Mass {
					m.absorb(pb, vb, db, sb, pa, va, da)
					store.MarkDead(a)
					break
				}
				m.absorb(pa, va, da, sa, pb, vb, db)
				store.MarkDead(b)
			}
		}
	}
	return merges
}

// absorb folds droplet o into droplet k. Mass is conserved so the new
// radius is the quadrature sum of both radii. The caller marks o dead.
func (m *Merger) absorb(kp *components.Position, kv *components.Velocity, kd *components.Droplet, ks *components.Shape,
	op *components.Position, ov *components.Velocity, od *components.Droplet) {
	kp.X = (kp.X + op.X) / 2
	kp.Y = (kp.Y + op.Y) / 2

	faster := *kv
	if ov.Speed() > kv.Speed() {
		faster = *ov
	}
	kv.X = faster.X * m.cfg.MergeBoost
	kv.Y = faster.Y * m.cfg.MergeBoost

	kd.SetMass(kd.Mass + od.Mass)
	kd.Stickiness *= m.cfg.MergeAdhesionFactor
	kd.TrailChild = kd.TrailChild && od.TrailChild
	if !kd.TrailChild {
		kd.ShrinkRate = 0
	}
	ks.Dirty = true
}

// Sanitize repairs non-finite droplet state left behind by earlier steps.
// Droplets with an unrecoverable position or size are marked dead;
// non-finite velocities are zeroed. Returns the number of droplets touched.
func Sanitize(store *DropletStore) int {
	touched := 0
	query := store.Query()
	for query.Next() {
		pos, vel, d, _ := query.Get()
		if d.Dead {
			continue
		}
		if !finiteAll(pos.X, pos.Y, d.Radius, d.Mass, d.Stretch) || d.Radius <= 0 {
			store.MarkDead(query.Entity())
			touched++
			continue
		}
		if !finiteAll(vel.X, vel.Y) {
			*vel = components.Velocity{}
			touched++
		}
		if math.IsNaN(d.Stickiness) {
			d.Stickiness = 0
		}
	}
	return touched
}

// Confine pulls droplets loaded from outside the simulation back into a
// width x height canvas: positions are clamped to the canvas plus margin,
// velocity components to the canvas diagonal, stretch to the diagonal, and
// droplets larger than the diagonal are marked dead. Returns the number of droplets touched.
func Confine(store *DropletStore, width, height, margin float64) int {
	reach := math.Max(math.Hypot(width, height), 1)
	touched := 0
	query := store.Query()
	for query.Next() {
		pos, vel, d, _ := query.Get()
		if d.Dead {
			continue
		}
		if !(d.Radius <= reach) {
			store.MarkDead(query.Entity())
			touched++
			continue
		}

		changed := false
		if !(d.Stretch >= 1) || d.Stretch*d.Radius > reach {
			d.Stretch = 1
			changed = true
		}

		x := clampf(pos.X, -margin, width+margin)
		y := clampf(pos.Y, -margin, height+margin)
		vx := clampf(vel.X, -reach, reach)
		vy := clampf(vel.Y, -reach, reach)
		if x != pos.X || y != pos.Y || vx != vel.X || vy != vel.Y {
			pos.X, pos.Y = x, y
			vel.X, vel.Y = vx, vy
			d.LastTrailX, d.LastTrailY = x, y
			changed = true
		}
		if changed {
			touched++
		}
	}
	return touched
}
