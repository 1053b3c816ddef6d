package geomodel

import (
	"errors"
	"math"
	"testing"
)

func TestComputeExtents_CentroidPlusMinusHalfSize(t *testing.T) {
	extents, err := ComputeExtents(
		[][3]float64{{0, 0, 0}, {10, 20, 30}},
		[][3]float64{{2, 2, 2}, {1, 2, 4}},
	)
	if err != nil {
		t.Fatalf("ComputeExtents: %v", err)
	}

	if extents[0].Min != [3]float64{-1, -1, -1} || extents[0].Max != [3]float64{1, 1, 1} {
		t.Errorf("extent 0 = %+v, want [(-1,-1,-1),(1,1,1)]", extents[0])
	}
	if extents[1].Min != [3]float64{9.5, 19, 28} || extents[1].Max != [3]float64{10.5, 21, 32} {
		t.Errorf("extent 1 = %+v", extents[1])
	}
}

func TestComputeExtents_RoundsFloatNoise(t *testing.T) {
	// 0.1+0.2 style noise in centroid arithmetic must not push an extent
	// corner past the block face by a few ULPs.
	extents, err := ComputeExtents(
		[][3]float64{{0.1 + 0.2, 0.3, 0.3}},
		[][3]float64{{0.6, 0.6, 0.6}},
	)
	if err != nil {
		t.Fatalf("ComputeExtents: %v", err)
	}
	for axis := 0; axis < 3; axis++ {
		if extents[0].Min[axis] != 0 {
			t.Errorf("Min[%d] = %.17g, want exactly 0", axis, extents[0].Min[axis])
		}
		if extents[0].Max[axis] != 0.6 {
			t.Errorf("Max[%d] = %.17g, want exactly 0.6", axis, extents[0].Max[axis])
		}
	}
}

func TestComputeExtents_RejectsDegenerateSize(t *testing.T) {
	for _, size := range [][3]float64{
		{0, 1, 1},
		{1, -2, 1},
		{1, 1, 0},
	} {
		_, err := ComputeExtents([][3]float64{{0, 0, 0}}, [][3]float64{size})
		if !errors.Is(err, ErrDegenerateExtent) {
			t.Errorf("ComputeExtents(size=%v) err = %v, want ErrDegenerateExtent", size, err)
		}
	}
}

func TestExtentContains_InclusiveBothBounds(t *testing.T) {
	e := Extent{Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}

	tests := []struct {
		p    [3]float64
		want bool
	}{
		{[3]float64{0, 0, 0}, true},
		{[3]float64{1, 1, 1}, true},    // upper corner inclusive
		{[3]float64{-1, -1, -1}, true}, // lower corner inclusive
		{[3]float64{1, 0, 0}, true},    // face
		{[3]float64{1.0000001, 0, 0}, false},
		{[3]float64{0, -1.0000001, 0}, false},
		{[3]float64{2, 2, 2}, false},
	}
	for _, tc := range tests {
		if got := e.Contains(tc.p); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	// 30° rotation about Z plus a translation. World→local→world must return
	// the original within float tolerance.
	s, c := math.Sin(math.Pi/6), math.Cos(math.Pi/6)
	tr := Transform{
		Origin:   [3]float64{100, -250, 40},
		Rotation: [9]float64{c, -s, 0, s, c, 0, 0, 0, 1},
	}

	points := [][3]float64{
		{0, 0, 0},
		{123.456, -78.9, 10.01},
		{-1e3, 1e3, -1e3},
	}
	for _, p := range points {
		local := tr.ToLocal(p)
		back := tr.ToWorld(local)
		for axis := 0; axis < 3; axis++ {
			if math.Abs(back[axis]-p[axis]) > 1e-6 {
				t.Errorf("round trip of %v: got %v", p, back)
				break
			}
		}
	}
}

func TestLocalizePoints_HalfResolutionOffset(t *testing.T) {
	m := &BlockModel{
		Resolution: [3]float64{2, 4, 6},
		Transform:  IdentityTransform(),
	}
	out := m.LocalizePoints([][3]float64{{0, 0, 0}, {1, 1, 1}})
	if out[0] != [3]float64{1, 2, 3} {
		t.Errorf("localized origin = %v, want offset by half resolution", out[0])
	}
	if out[1] != [3]float64{2, 3, 4} {
		t.Errorf("localized point = %v", out[1])
	}

	if got := m.LocalizePoints(nil); got != nil {
		t.Errorf("LocalizePoints(nil) = %v, want nil", got)
	}
}

func TestBlockModelValidate(t *testing.T) {
	m := &BlockModel{
		Centroids:   [][3]float64{{0, 0, 0}},
		Sizes:       [][3]float64{{1, 1, 1}},
		GridIndices: [][3]float64{{0, 0, 0}},
		Domains:     []string{"ox"},
		Resolution:  [3]float64{1, 1, 1},
		Counts:      [3]int{1, 1, 1},
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	short := *m
	short.Domains = nil
	if err := short.Validate(); err == nil {
		t.Error("Validate should reject mismatched array lengths")
	}

	flat := *m
	flat.Resolution = [3]float64{1, 0, 1}
	if err := flat.Validate(); err == nil {
		t.Error("Validate should reject non-positive resolution")
	}
}

func TestTotalLength(t *testing.T) {
	m := &BlockModel{Resolution: [3]float64{2, 2, 5}, Counts: [3]int{10, 20, 4}}
	if got := m.TotalLength(); got != [3]float64{20, 40, 20} {
		t.Errorf("TotalLength() = %v", got)
	}
}
