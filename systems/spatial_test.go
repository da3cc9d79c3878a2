package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rainglass/components"
)

func TestSpatialGridDims(t *testing.T) {
	tests := []struct {
		name               string
		w, h, cell         float64
		wantCols, wantRows int
	}{
		{"exact multiple", 96, 48, 48, 2, 1},
		{"rounds up", 100, 50, 48, 3, 2},
		{"smaller than a cell", 10, 10, 48, 1, 1},
		{"zero size", 0, 0, 48, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewSpatialGrid(tt.w, tt.h, tt.cell)
			if got, want := g.Len(), tt.wantCols*tt.wantRows; got != want {
				t.Errorf("cells = %d, want %d", got, want)
			}
			if got := g.CellIndex(math.Inf(1), 0); got != tt.wantCols-1 {
				t.Errorf("last column index = %d, want %d", got, tt.wantCols-1)
			}
		})
	}
}

func TestSpatialGridCellIndexClamps(t *testing.T) {
	g := NewSpatialGrid(100, 50, 48) // 3x2
	tests := []struct {
		name string
		x, y float64
		want int
	}{
		{"origin", 0, 0, 0},
		{"negative", -20, -5, 0},
		{"second row", 50, 49, 4},
		{"far outside", 1000, 1000, 5},
		{"NaN", math.NaN(), math.NaN(), 0},
		{"infinite", math.Inf(1), 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CellIndex(tt.x, tt.y); got != tt.want {
				t.Errorf("CellIndex(%v, %v) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestSpatialGridNeighborsAxisAdjacent(t *testing.T) {
	w := ecs.NewWorld()
	mapper := ecs.NewMap1[components.Position](w)
	newEntity := func() ecs.Entity {
		return mapper.NewEntity(&components.Position{})
	}

	g := NewSpatialGrid(30, 30, 10) // 3x3
	center := newEntity()
	left := newEntity()
	right := newEntity()
	up := newEntity()
	down := newEntity()
	diagonal := newEntity()

	g.Insert(center, 15, 15)
	g.Insert(left, 5, 15)
	g.Insert(right, 25, 15)
	g.Insert(up, 15, 5)
	g.Insert(down, 15, 25)
	g.Insert(diagonal, 5, 5)

	got := g.Neighbors(nil, g.CellIndex(15, 15))
	if len(got) != 5 {
		t.Fatalf("neighbors = %d, want 5", len(got))
	}
	for _, e := range got {
		if e == diagonal {
			t.Error("diagonal cell should not be a neighbor")
		}
	}

	// Corner cell only sees itself and two neighbors
	corner := g.Neighbors(nil, 0)
	if len(corner) != 3 {
		t.Errorf("corner neighbors = %d, want 3 (diagonal, left, up)", len(corner))
	}

	g.Clear()
	if n := len(g.Neighbors(nil, g.CellIndex(15, 15))); n != 0 {
		t.Errorf("after Clear got %d neighbors, want 0", n)
	}
}

func TestSpatialGridBuildSkipsDead(t *testing.T) {
	cfg := quietConfig()
	store := NewDropletStore()
	rng := newTestSource()
	spawnDroplet(store, cfg, rng, 10, 10, 3, 0.1)
	spawnDroplet(store, cfg, rng, 12, 10, 3, 0.1)
	ents := store.Entities(nil)
	store.MarkDead(ents[1])

	g := NewSpatialGrid(100, 100, 48)
	g.Build(store)
	if n := len(g.Cell(0)); n != 1 {
		t.Errorf("cell holds %d droplets, want 1", n)
	}
}

func TestSpatialGridSetCellSize(t *testing.T) {
	g := NewSpatialGrid(100, 50, 48) // 3x2
	g.SetCellSize(25)
	if got := g.Len(); got != 8 {
		t.Errorf("cells = %d, want 8 (4x2)", got)
	}
	g.SetCellSize(-1)
	if got := g.Len(); got != 8 {
		t.Errorf("invalid size changed the grid to %d cells", got)
	}
}
