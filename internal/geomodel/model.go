// Package geomodel implements the spatial core of the domain comparison
// pipeline: block model representation, the reverse grid index from parent
// cells to block indices, and the point-in-block containment resolver that
// classifies every sample point against the block it falls within.
package geomodel

import (
	"fmt"
	"math"
)

// extentDecimals controls rounding of computed extent corners. Without it the
// centroid ± size/2 arithmetic can overshoot by a few ULPs and exclude points
// sitting exactly on a block face.
const extentDecimals = 6

// ErrDegenerateExtent is wrapped by ComputeExtents when a block's size is not
// strictly positive on every axis.
var ErrDegenerateExtent = fmt.Errorf("geomodel: degenerate block extent")

// Extent is the axis-aligned bounding box of one block, in the same local
// frame as localized centroids and sample points.
type Extent struct {
	Min [3]float64
	Max [3]float64
}

// Contains reports whether p lies within the extent, inclusive on both bounds
// on all three axes. Points exactly on a face or corner are inside.
func (e Extent) Contains(p [3]float64) bool {
	return e.Min[0] <= p[0] && p[0] <= e.Max[0] &&
		e.Min[1] <= p[1] && p[1] <= e.Max[1] &&
		e.Min[2] <= p[2] && p[2] <= e.Max[2]
}

// BlockModel is an in-memory snapshot of one block model: parallel arrays
// indexed by block. GridIndices arrive float-typed from some model
// representations and are truncated to integers when the grid index is built.
type BlockModel struct {
	Name string

	Centroids   [][3]float64 // world coordinates as loaded
	Sizes       [][3]float64
	GridIndices [][3]float64
	Domains     []string
	Visibility  []bool

	Resolution [3]float64 // parent cell size per axis
	Counts     [3]int     // column, row and slice counts
	Transform  Transform  // world → local frame
}

// BlockCount returns the number of blocks in the model.
func (m *BlockModel) BlockCount() int { return len(m.Centroids) }

// TotalLength returns the model's overall dimensions (resolution × count per
// axis). Two models must agree on these before a lattice comparison.
func (m *BlockModel) TotalLength() [3]float64 {
	return [3]float64{
		m.Resolution[0] * float64(m.Counts[0]),
		m.Resolution[1] * float64(m.Counts[1]),
		m.Resolution[2] * float64(m.Counts[2]),
	}
}

// Validate checks the parallel arrays agree in length and that the resolution
// is strictly positive. It does not inspect individual block sizes; that
// happens in ComputeExtents.
func (m *BlockModel) Validate() error {
	n := len(m.Centroids)
	if len(m.Sizes) != n || len(m.GridIndices) != n || len(m.Domains) != n {
		return fmt.Errorf("geomodel: block arrays disagree: %d centroids, %d sizes, %d grid indices, %d domains",
			n, len(m.Sizes), len(m.GridIndices), len(m.Domains))
	}
	if m.Visibility != nil && len(m.Visibility) != n {
		return fmt.Errorf("geomodel: %d visibility flags for %d blocks", len(m.Visibility), n)
	}
	for axis := 0; axis < 3; axis++ {
		if !(m.Resolution[axis] > 0) {
			return fmt.Errorf("geomodel: resolution must be positive, got %v", m.Resolution)
		}
	}
	return nil
}

// LocalCentroids converts the model's world-space centroids into its local
// frame and applies the half-resolution centring offset, so that parent cell
// boundaries fall on integer multiples of the resolution.
func (m *BlockModel) LocalCentroids() [][3]float64 {
	return m.LocalizePoints(m.Centroids)
}

// LocalizePoints applies the model's world→local transform plus the
// half-resolution offset to a set of points. Sample points must go through
// this exact conversion before being resolved, or cell bucketing and extent
// tests silently disagree.
func (m *BlockModel) LocalizePoints(points [][3]float64) [][3]float64 {
	if len(points) == 0 {
		return nil
	}
	half := [3]float64{m.Resolution[0] / 2, m.Resolution[1] / 2, m.Resolution[2] / 2}
	out := make([][3]float64, len(points))
	for i, p := range points {
		q := m.Transform.ToLocal(p)
		out[i] = [3]float64{q[0] + half[0], q[1] + half[1], q[2] + half[2]}
	}
	return out
}

// ComputeExtents derives one axis-aligned bounding box per block from
// localized centroids and block sizes, corners rounded to 6 decimal places.
// A size that is not strictly positive on every axis is rejected.
func ComputeExtents(centroids, sizes [][3]float64) ([]Extent, error) {
	if len(centroids) != len(sizes) {
		return nil, fmt.Errorf("geomodel: %d centroids but %d sizes", len(centroids), len(sizes))
	}
	extents := make([]Extent, len(centroids))
	for i := range centroids {
		c, s := centroids[i], sizes[i]
		for axis := 0; axis < 3; axis++ {
			if !(s[axis] > 0) {
				return nil, fmt.Errorf("%w: block %d size %v", ErrDegenerateExtent, i, s)
			}
			extents[i].Min[axis] = roundPlaces(c[axis]-s[axis]/2, extentDecimals)
			extents[i].Max[axis] = roundPlaces(c[axis]+s[axis]/2, extentDecimals)
		}
	}
	return extents, nil
}

func roundPlaces(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
