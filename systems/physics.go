package systems

import (
	"math"

	"github.com/pthm-cable/rainglass/components"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/jitter"
)

// MaxCoord bounds droplet coordinates. Anything farther from the canvas
// origin is a numerical fault, however finite.
const MaxCoord = 1 << 20

// ClampDT bounds a frame delta to [0, maxDT]. Non-finite deltas become 0.
func ClampDT(dt, maxDT float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	if dt > maxDT {
		return maxDT
	}
	return dt
}

// PhysicsStats counts what happened during one Update.
type PhysicsStats struct {
	Deposits      int
	Children      int
	Offscreen     int
	Evaporated    int
	Rollbacks     int
	StaticEntered int
}

type childRequest struct {
	x, y, r float64
}

// Physics integrates droplet motion: random motion, gravity against
// resistance, wind, damping, shape, trail deposits and off-screen removal.
type Physics struct {
	cfg           *config.Config
	width, height float64

	gust    *GustField
	outline *OutlineNoise
	time    float64

	children []childRequest
	Stats    PhysicsStats
}

// NewPhysics creates a physics system for a canvas of width x height
// device pixels.
func NewPhysics(cfg *config.Config, width, height float64, seed int64) *Physics {
	return &Physics{
		cfg:     cfg,
		width:   width,
		height:  height,
		gust:    NewGustField(seed, cfg.Physics.Gust),
		outline: NewOutlineNoise(seed + 1),
	}
}

// Resize changes the canvas bounds used for off-screen removal.
func (p *Physics) Resize(width, height float64) {
	p.width, p.height = width, height
}

// Retune picks up configuration values cached at construction.
func (p *Physics) Retune() {
	p.gust.SetAmplitude(p.cfg.Physics.Gust)
}

// Update advances every droplet by dt seconds (already clamped). trail may
// be nil. Trail children requested during the pass are added to the store
// after iteration.
func (p *Physics) Update(store *DropletStore, dt float64, rng *jitter.Source, trail *TrailBuffer) {
	p.Stats = PhysicsStats{}
	if !(dt > 0) {
		return
	}
	p.time += dt
	steps := dt * config.ReferenceFPS
	pc := &p.cfg.Physics
	tc := &p.cfg.Trail

	hDamp := math.Pow(pc.HorizontalDamping, steps)
	reach := math.Max(math.Hypot(p.width, p.height), 1)
	p.children = p.children[:0]
	childRoom := p.cfg.Derived.ChildCap - store.Count()

	query := store.Query()
	for query.Next() {
		pos, vel, d, shape := query.Get()
		if d.Dead {
			continue
		}
		e := query.Entity()

		// Random motion: re-roll resistance and bias
		d.MotionTimer -= dt
		if d.MotionTimer <= 0 {
			d.Resistance = rng.Float64() * pc.ResistanceBase
			d.Shift = rng.Signed(pc.ShiftRange)
			d.MotionTimer = rng.Range(pc.MotionIntervalMin, pc.MotionIntervalMax)
		}

		// Evaporation
		if loss := pc.EvaporationRate + d.ShrinkRate; loss > 0 {
			d.SetMass(d.Mass - loss*dt)
			if d.Dead {
				p.Stats.Evaporated++
				continue
			}
		}

		prevPos := *pos

		// Gravity against resistance; never pulls upward
		accel := (pc.Gravity*d.Mass - d.Resistance) / d.Mass
		vel.Y += accel * steps
		if vel.Y < 0 {
			vel.Y = 0
		}

		// Horizontal motion follows the fall speed
		vel.X = d.Shift * math.Abs(vel.Y) * pc.Meander

		// Wind, then damping
		vel.X += (pc.WindX + p.gust.At(pos.Y, p.time)) * steps
		vel.Y += pc.WindY * steps
		vel.X *= hDamp
		vel.Y *= math.Pow(1-d.Stickiness, steps)

		pos.X += vel.X * steps
		pos.Y += vel.Y * steps

		// A step that leaves the canvas reach in one go is a fault too
		if !finiteAll(pos.X, pos.Y, vel.X, vel.Y) ||
			math.Hypot(pos.X-prevPos.X, pos.Y-prevPos.Y) > reach {
			p.Stats.Rollbacks++
			if !inBounds(prevPos.X, prevPos.Y) {
				store.MarkDead(e)
				continue
			}
			*pos = prevPos
			*vel = components.Velocity{}
			d.Shift = 0
		}

		// Shape
		before := shape.State
		UpdateShape(shape, d, vel, pc)
		if shape.State != before && shape.State == components.ShapeIrregularStatic {
			p.Stats.StaticEntered++
		}
		if shape.Dirty {
			p.outline.Regenerate(shape, d.Seed, rng.Float64()*64)
		}

		// Trail deposit
		if tc.Enabled {
			dx := pos.X - d.LastTrailX
			dy := pos.Y - d.LastTrailY
			if math.Sqrt(dx*dx+dy*dy) >= d.NextTrail {
				if trail != nil {
					trail.Deposit(d.LastTrailX, d.LastTrailY, pos.X, pos.Y, 2*d.Radius*tc.Width, tc.Intensity)
				}
				p.Stats.Deposits++

				if !d.TrailChild && d.Radius > 2 && len(p.children) < childRoom && rng.Chance(tc.ChildChance) {
					p.children = append(p.children, childRequest{
						x: d.LastTrailX + rng.Signed(d.Radius*0.3),
						y: d.LastTrailY,
						r: d.Radius * rng.Range(0.18, 0.32),
					})
				}

				d.LastTrailX, d.LastTrailY = pos.X, pos.Y
				d.NextTrail = d.Radius * rng.Range(tc.DistanceMin, tc.DistanceMax)
			}
		}

		// Off-screen removal
		if pos.Y-d.Radius > p.height+pc.OffscreenMargin ||
			pos.X+d.Radius < -pc.OffscreenMargin ||
			pos.X-d.Radius > p.width+pc.OffscreenMargin {
			store.MarkDead(e)
			p.Stats.Offscreen++
		}
	}

	// World is unlocked again: add trail children
	for _, c := range p.children {
		child := NewDroplet(c.r, p.cfg, rng)
		child.TrailChild = true
		child.Stickiness = 0.95
		child.ShrinkRate = tc.ChildShrinkRate
		child.Resistance = pc.ResistanceBase
		store.Spawn(c.x, c.y, components.Velocity{}, child)
	}
	p.Stats.Children = len(p.children)
}

// inBounds reports whether a position is finite and within MaxCoord.
func inBounds(x, y float64) bool {
	return finiteAll(x, y) && math.Abs(x) <= MaxCoord && math.Abs(y) <= MaxCoord
}
