package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
)

// SpatialGrid buckets droplets into square cells so merge checks only
// compare nearby pairs. It is rebuilt from scratch every tick.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	width    float64
	height   float64
	cells    [][]ecs.Entity // flat grid of entity lists
}

// NewSpatialGrid creates a grid covering width x height device pixels.
// Columns and rows round up so the far edges are covered.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	g := &SpatialGrid{cellSize: cellSize}
	if !(g.cellSize > 0) {
		g.cellSize = 1
	}
	g.Resize(width, height)
	return g
}

// Resize reallocates the cells for new canvas dimensions.
func (g *SpatialGrid) Resize(width, height float64) {
	g.width = width
	g.height = height
	g.cols = gridDim(width, g.cellSize)
	g.rows = gridDim(height, g.cellSize)

	g.cells = make([][]ecs.Entity, g.cols*g.rows)
	for i := range g.cells {
		g.cells[i] = make([]ecs.Entity, 0, 8) // pre-allocate small capacity
	}
}

func gridDim(extent, cellSize float64) int {
	if !(extent > 0) || math.IsInf(extent, 0) {
		return 1
	}
	n := int(math.Ceil(extent / cellSize))
	if n < 1 {
		n = 1
	}
	return n
}

// SetCellSize changes the cell size and reallocates the cells.
func (g *SpatialGrid) SetCellSize(cellSize float64) {
	if !(cellSize > 0) || cellSize == g.cellSize {
		return
	}
	g.cellSize = cellSize
	g.Resize(g.width, g.height)
}

// Len returns the number of cells.
func (g *SpatialGrid) Len() int {
	return len(g.cells)
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity at the given position and returns its cell index.
// Positions outside the canvas land in the nearest edge cell.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float64) int {
	idx := g.CellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], e)
	return idx
}

// Build clears the grid and inserts every droplet that is not marked dead.
func (g *SpatialGrid) Build(store *DropletStore) {
	g.Clear()
	query := store.Query()
	for query.Next() {
		pos, _, d, _ := query.Get()
		if d.Dead {
			continue
		}
		g.Insert(query.Entity(), pos.X, pos.Y)
	}
}

// Cell returns the entities bucketed in a cell. The slice is owned by the
// grid and valid until the next Clear.
func (g *SpatialGrid) Cell(idx int) []ecs.Entity {
	if idx < 0 || idx >= len(g.cells) {
		return nil
	}
	return g.cells[idx]
}

// Neighbors appends the entities of a cell and its four axis-adjacent cells
// (left, right, up, down) to dst. Diagonal cells are not included.
func (g *SpatialGrid) Neighbors(dst []ecs.Entity, idx int) []ecs.Entity {
	if idx < 0 || idx >= len(g.cells) {
		return dst
	}
	col := idx % g.cols
	row := idx / g.cols

	dst = append(dst, g.cells[idx]...)
	if col > 0 {
		dst = append(dst, g.cells[idx-1]...)
	}
	if col < g.cols-1 {
		dst = append(dst, g.cells[idx+1]...)
	}
	if row > 0 {
		dst = append(dst, g.cells[idx-g.cols]...)
	}
	if row < g.rows-1 {
		dst = append(dst, g.cells[idx+g.cols]...)
	}
	return dst
}

// CellIndex returns the flat index for a canvas position.
func (g *SpatialGrid) CellIndex(x, y float64) int {
	col := clampCell(x, g.cellSize, g.cols)
	row := clampCell(y, g.cellSize, g.rows)
	return row*g.cols + col
}

func clampCell(v, cellSize float64, n int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	f := v / cellSize
	if f >= float64(n) {
		return n - 1
	}
	return int(f)
}
