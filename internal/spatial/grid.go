package spatial

import (
	"math"

	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/unit"
)

// DefaultCellSize suits unit sight radii of a few cells.
const DefaultCellSize = 4.0

type cellKey struct {
	X int
	Y int
}

// Index is a uniform grid over unit positions, rebuilt from the store once per
// tick. It answers coarse neighborhood queries; callers filter exact distance.
type Index struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]ecs.Entity
	count       int
	// lo and hi bound every indexed position.
	lo, hi geom.Vec2
}

func NewIndex(cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Index{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]ecs.Entity),
	}
}

// Rebuild re-buckets every entity with a position.
func (idx *Index) Rebuild(s *ecs.Store) {
	clear(idx.cells)
	idx.count = 0
	for _, e := range s.EntitiesWith(unit.PositionKey.Type()) {
		p, ok := unit.PositionKey.Get(s, e)
		if !ok || p == nil {
			continue
		}
		if idx.count == 0 {
			idx.lo, idx.hi = p.Vec2, p.Vec2
		} else {
			idx.lo = geom.Vec2{X: min(idx.lo.X, p.X), Y: min(idx.lo.Y, p.Y)}
			idx.hi = geom.Vec2{X: max(idx.hi.X, p.X), Y: max(idx.hi.Y, p.Y)}
		}
		k := idx.key(p.Vec2)
		idx.cells[k] = append(idx.cells[k], e)
		idx.count++
	}
}

func (idx *Index) Len() int { return idx.count }

// NearbyUnits lists entities in every cell the query circle touches. The scan is
// clipped to the occupied bounds, so huge or infinite radii stay finite.
func (idx *Index) NearbyUnits(pos geom.Vec2, radius float64, exclude ecs.Entity) []ecs.Entity {
	if idx.count == 0 || !(radius >= 0) {
		return nil
	}
	lo := idx.key(geom.Vec2{X: max(pos.X-radius, idx.lo.X), Y: max(pos.Y-radius, idx.lo.Y)})
	hi := idx.key(geom.Vec2{X: min(pos.X+radius, idx.hi.X), Y: min(pos.Y+radius, idx.hi.Y)})
	var out []ecs.Entity
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			for _, e := range idx.cells[cellKey{x, y}] {
				if e != exclude {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

func (idx *Index) key(p geom.Vec2) cellKey {
	return cellKey{
		X: int(math.Floor(p.X * idx.invCellSize)),
		Y: int(math.Floor(p.Y * idx.invCellSize)),
	}
}
