package geomodel

import (
	"fmt"
	"math"
)

// MaxLatticeCells caps the probe lattice size. A careless choice of smallest
// sub-block sizes can drive the per-axis GCD tiny and the cell count past
// anything that fits in memory.
const MaxLatticeCells = 10_000_000_000

// gcdScale converts block dimensions to integer units for the GCD. One
// micro-unit resolution is far below any practical block size.
const gcdScale = 1e6

// FloatGCD returns the greatest common divisor of two positive block
// dimensions, computed over micro-unit integers.
func FloatGCD(a, b float64) float64 {
	x := int64(math.Round(a * gcdScale))
	y := int64(math.Round(b * gcdScale))
	for y != 0 {
		x, y = y, x%y
	}
	return float64(x) / gcdScale
}

// CellGCD returns the per-axis GCD of two sub-block sizes: the probe cell
// size at which both models' sub-block boundaries align.
func CellGCD(a, b [3]float64) [3]float64 {
	return [3]float64{
		FloatGCD(a[0], b[0]),
		FloatGCD(a[1], b[1]),
		FloatGCD(a[2], b[2]),
	}
}

// BuildLattice synthesises probe centroids covering span at the given cell
// size: one centroid per cell, at the cell centre, iterating x outermost and
// z innermost. Errors when the cell count would exceed MaxLatticeCells.
func BuildLattice(span, cell [3]float64) ([][3]float64, error) {
	var counts [3]int
	total := 1.0
	for axis := 0; axis < 3; axis++ {
		if !(cell[axis] > 0) {
			return nil, fmt.Errorf("geomodel: lattice cell size must be positive, got %v", cell)
		}
		counts[axis] = int(span[axis] / cell[axis])
		total *= float64(counts[axis])
	}
	if total > MaxLatticeCells {
		return nil, fmt.Errorf("geomodel: lattice of %.0f cells exceeds cap of %d; choose larger sub-block sizes", total, MaxLatticeCells)
	}

	probes := make([][3]float64, 0, int(total))
	for ix := 0; ix < counts[0]; ix++ {
		x := cell[0]/2 + float64(ix)*cell[0]
		for iy := 0; iy < counts[1]; iy++ {
			y := cell[1]/2 + float64(iy)*cell[1]
			for iz := 0; iz < counts[2]; iz++ {
				probes = append(probes, [3]float64{x, y, cell[2]/2 + float64(iz)*cell[2]})
			}
		}
	}
	return probes, nil
}
