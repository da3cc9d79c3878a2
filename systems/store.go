// Package systems implements the droplet simulation: the droplet store,
// spatial index, physics integration, merging, trails, condensation and
// spawning.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rainglass/components"
)

// DropletStore owns every live droplet. Droplets are ECS entities carrying
// Position, Velocity, Droplet and Shape components; the world is locked
// while a query is open, so creation and removal happen between passes.
type DropletStore struct {
	world  *ecs.World
	mapper *ecs.Map4[components.Position, components.Velocity, components.Droplet, components.Shape]
	filter ecs.Filter4[components.Position, components.Velocity, components.Droplet, components.Shape]

	count   int
	scratch []ecs.Entity
}

// NewDropletStore creates an empty store backed by its own world.
func NewDropletStore() *DropletStore {
	w := ecs.NewWorld()
	return &DropletStore{
		world:  w,
		mapper: ecs.NewMap4[components.Position, components.Velocity, components.Droplet, components.Shape](w),
		filter: *ecs.NewFilter4[components.Position, components.Velocity, components.Droplet, components.Shape](w),
	}
}

// Spawn adds a droplet at (x, y). The trail anchor starts at the spawn point
// and the outline starts dirty so the first physics pass builds it.
// Must not be called while a query is open.
func (s *DropletStore) Spawn(x, y float64, vel components.Velocity, d components.Droplet) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	d.LastTrailX = x
	d.LastTrailY = y
	if d.Stretch <= 0 {
		d.Stretch = 1
	}
	shape := components.Shape{State: components.ShapeTeardrop, Dirty: true}

	e := s.mapper.NewEntity(&pos, &vel, &d, &shape)
	s.count++
	return e
}

// Count returns the number of droplets in the store, dead ones included
// until the next Compact.
func (s *DropletStore) Count() int {
	return s.count
}

// Get returns the components of a droplet.
func (s *DropletStore) Get(e ecs.Entity) (*components.Position, *components.Velocity, *components.Droplet, *components.Shape) {
	return s.mapper.Get(e)
}

// Alive reports whether the entity still exists in the store.
func (s *DropletStore) Alive(e ecs.Entity) bool {
	return s.world.Alive(e)
}

// Query returns a fresh query over all droplets in store order.
// The query must be iterated to completion or closed.
func (s *DropletStore) Query() ecs.Query4[components.Position, components.Velocity, components.Droplet, components.Shape] {
	return s.filter.Query()
}

// Entities appends every droplet entity in store order to dst.
func (s *DropletStore) Entities(dst []ecs.Entity) []ecs.Entity {
	query := s.filter.Query()
	for query.Next() {
		dst = append(dst, query.Entity())
	}
	return dst
}

// Compact removes all droplets marked dead and returns how many were removed.
// No entity handle of a removed droplet is valid afterwards.
func (s *DropletStore) Compact() int {
	// First pass: collect dead entities (world is locked during the query)
	s.scratch = s.scratch[:0]
	query := s.filter.Query()
	for query.Next() {
		_, _, d, _ := query.Get()
		if d.Dead {
			s.scratch = append(s.scratch, query.Entity())
		}
	}

	// Second pass: remove
	for _, e := range s.scratch {
		s.world.RemoveEntity(e)
	}
	s.count -= len(s.scratch)
	return len(s.scratch)
}

// Clear removes every droplet.
func (s *DropletStore) Clear() {
	s.scratch = s.Entities(s.scratch[:0])
	for _, e := range s.scratch {
		s.world.RemoveEntity(e)
	}
	s.count = 0
}

// MarkDead flags a droplet for removal by the next Compact.
func (s *DropletStore) MarkDead(e ecs.Entity) {
	if !s.world.Alive(e) {
		return
	}
	_, _, d, _ := s.mapper.Get(e)
	d.Dead = true
}
