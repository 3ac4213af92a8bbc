// Package systems provides the per-tick world updates of the village host.
package systems

import (
	"sort"

	"github.com/pthm-cable/cortex/registry"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	ID     registry.EntityID
	DX, DY float32 // Delta from query origin
	DistSq float32
}

type gridEntry struct {
	id   registry.EntityID
	x, y float32
}

// SpatialGrid provides neighbor lookups using a cell-based grid over a
// bounded world. Positions outside the bounds land in the edge cells.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	cells    [][]gridEntry
	count    int
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]gridEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]gridEntry, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(id registry.EntityID, x, y float32) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], gridEntry{id: id, x: x, y: y})
	g.count++
}

// Len returns the number of inserted entities.
func (g *SpatialGrid) Len() int { return g.count }

// MaxQueryResults caps the number of neighbors returned by spatial queries.
const MaxQueryResults = 128

// QueryRadiusInto finds entities within radius and appends them to dst
// ordered by distance, then id. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float32) []Neighbor {
	start := len(dst)
	cellRadius := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.cellCoords(x, y)
	radiusSq := radius * radius

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		col := centerCol + dc
		if col < 0 || col >= g.cols {
			continue
		}
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			row := centerRow + dr
			if row < 0 || row >= g.rows {
				continue
			}
			for _, e := range g.cells[row*g.cols+col] {
				dx := e.x - x
				dy := e.y - y
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{ID: e.id, DX: dx, DY: dy, DistSq: distSq})
				}
			}
		}
	}

	found := dst[start:]
	sort.Slice(found, func(i, j int) bool {
		if found[i].DistSq != found[j].DistSq {
			return found[i].DistSq < found[j].DistSq
		}
		return found[i].ID < found[j].ID
	})
	if len(found) > MaxQueryResults {
		dst = dst[:start+MaxQueryResults]
	}
	return dst
}

func (g *SpatialGrid) cellCoords(x, y float32) (col, row int) {
	col = int(x / g.cellSize)
	row = int(y / g.cellSize)
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float32) int {
	col, row := g.cellCoords(x, y)
	return row*g.cols + col
}
