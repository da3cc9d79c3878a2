package systems

import (
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/jitter"
)

// CondensationPoint is one short-lived sparkle of fog on the glass.
type CondensationPoint struct {
	X, Y    float64
	Radius  float64
	Phase   float64 // Sparkle phase in radians
	Speed   float64 // Phase advance in radians per second
	Life    float64 // Seconds remaining
	MaxLife float64
}

// Alpha returns the fade envelope: quick fade in, slow fade out.
func (p *CondensationPoint) Alpha() float64 {
	if p.MaxLife <= 0 {
		return 0
	}
	age := 1 - p.Life/p.MaxLife
	if age < 0.15 {
		return age / 0.15
	}
	return p.Life / (p.MaxLife * 0.85)
}

// CondensationField manages condensation sparkles.
type CondensationField struct {
	Points []CondensationPoint

	cfg           *config.CondensationConfig
	width, height float64
	spawned       int
}

// NewCondensationField creates an empty field for a canvas size.
func NewCondensationField(cfg *config.CondensationConfig, width, height float64) *CondensationField {
	return &CondensationField{
		Points: make([]CondensationPoint, 0, cfg.MaxPoints),
		cfg:    cfg,
		width:  width,
		height: height,
	}
}

// Resize changes the spawn area. Existing points are kept.
func (f *CondensationField) Resize(width, height float64) {
	f.width, f.height = width, height
}

// Count returns the number of live points.
func (f *CondensationField) Count() int {
	return len(f.Points)
}

// TakeSpawned returns and resets the number of points created since the
// last call.
func (f *CondensationField) TakeSpawned() int {
	n := f.spawned
	f.spawned = 0
	return n
}

// Clear removes all points.
func (f *CondensationField) Clear() {
	f.Points = f.Points[:0]
}

// Update ages every point, drops the expired ones and, with probability
// density*dt, emits a new batch.
func (f *CondensationField) Update(dt float64, rng *jitter.Source) {
	alive := 0
	for i := range f.Points {
		p := &f.Points[i]

		p.Life -= dt
		if p.Life <= 0 {
			continue
		}
		p.Phase += p.Speed * dt

		// Keep point
		f.Points[alive] = f.Points[i]
		alive++
	}
	f.Points = f.Points[:alive]

	if !f.cfg.Enabled || !rng.Chance(f.cfg.Density*dt) {
		return
	}
	for i := 0; i < f.cfg.Batch && len(f.Points) < f.cfg.MaxPoints; i++ {
		f.emit(rng)
	}
}

func (f *CondensationField) emit(rng *jitter.Source) {
	life := rng.Range(f.cfg.LifeMin, f.cfg.LifeMax)
	f.Points = append(f.Points, CondensationPoint{
		X:       rng.Range(0, f.width),
		Y:       rng.Range(0, f.height),
		Radius:  rng.Range(f.cfg.RadiusMin, f.cfg.RadiusMax),
		Phase:   rng.Range(0, 6.283),
		Speed:   rng.Range(3, 9),
		Life:    life,
		MaxLife: life,
	})
	f.spawned++
}
