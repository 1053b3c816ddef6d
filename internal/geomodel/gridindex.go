package geomodel

import (
	"fmt"
	"math"
)

// GridKey identifies one parent grid cell as a (column, row, slice) triple.
type GridKey [3]int

// GridIndex is the reverse mapping from parent grid cell to the block indices
// occupying that cell. For a dense model every bucket holds exactly one block;
// for a sub-blocked model a bucket holds all sub-blocks of the parent cell, in
// insertion order. Built once, read-only afterwards.
type GridIndex struct {
	cells map[GridKey][]int
}

// BuildGridIndex constructs the reverse index from per-block grid coordinates.
// Coordinates arrive float-typed from some model representations and are
// truncated (not rounded) to integers, matching the truncation applied when
// points are bucketed later. Non-finite coordinates are rejected up front so
// the index itself stays total over its input.
func BuildGridIndex(gridIndices [][3]float64) (*GridIndex, error) {
	cells := make(map[GridKey][]int, len(gridIndices))
	for block, gi := range gridIndices {
		for axis := 0; axis < 3; axis++ {
			if math.IsNaN(gi[axis]) || math.IsInf(gi[axis], 0) {
				return nil, fmt.Errorf("geomodel: block %d has non-finite grid coordinate %v", block, gi)
			}
		}
		key := GridKey{int(gi[0]), int(gi[1]), int(gi[2])}
		cells[key] = append(cells[key], block)
	}
	return &GridIndex{cells: cells}, nil
}

// Lookup returns the block indices stored for a cell and whether the cell is
// populated at all. An unpopulated cell means the queried location is outside
// the model's populated region; it is never an empty slice.
func (g *GridIndex) Lookup(key GridKey) ([]int, bool) {
	blocks, ok := g.cells[key]
	return blocks, ok
}

// CellCount returns the number of populated parent cells (the model's parent
// block count).
func (g *GridIndex) CellCount() int { return len(g.cells) }

// CellOf computes the parent cell for a localized point position using floor
// division. Floor, not truncation: a point at -0.5 with resolution 1.0 belongs
// to cell -1, not cell 0.
func CellOf(p [3]float64, resolution [3]float64) GridKey {
	return GridKey{
		int(math.Floor(p[0] / resolution[0])),
		int(math.Floor(p[1] / resolution[1])),
		int(math.Floor(p[2] / resolution[2])),
	}
}
