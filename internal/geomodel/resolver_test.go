package geomodel

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/domain.report/internal/monitoring"
)

// singleBlockConfig builds a one-block model: centroid (0,0,0), size (2,2,2),
// extent [(-1,-1,-1),(1,1,1)], resolution (2,2,2), domain "A".
func singleBlockConfig(t *testing.T) ResolverConfig {
	t.Helper()
	extents, err := ComputeExtents([][3]float64{{0, 0, 0}}, [][3]float64{{2, 2, 2}})
	require.NoError(t, err)
	index, err := BuildGridIndex([][3]float64{{0, 0, 0}})
	require.NoError(t, err)
	return ResolverConfig{
		Resolution: [3]float64{2, 2, 2},
		Index:      index,
		Extents:    extents,
		Domains:    []string{"A"},
	}
}

func TestResolve_SingleBlockScenario(t *testing.T) {
	cfg := singleBlockConfig(t)

	positions := [][3]float64{
		{0, 0, 0},             // inside, matching label
		{5, 5, 5},             // outside the model
		{0.999, 0.999, 0.999}, // inside, label differs
		{0.25, 0.25, 0.25},    // inside, matches after case folding
	}
	domains := []string{"a", "a", "b", "a"}

	res := Resolve(positions, domains, cfg)

	require.Len(t, res.Outcomes, 4)
	assert.Equal(t, Outcome{Kind: OutcomeMatched, Block: 0}, res.Outcomes[0])
	assert.Equal(t, Outcome{Kind: OutcomeOutside, Block: NoBlock}, res.Outcomes[1])
	assert.Equal(t, Outcome{Kind: OutcomeMismatched, Block: 0}, res.Outcomes[2])
	assert.Equal(t, Outcome{Kind: OutcomeMatched, Block: 0}, res.Outcomes[3])

	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 1, res.Mismatched)
	assert.Equal(t, []int{1}, res.OutsideIndices)
	assert.Empty(t, res.UnresolvedIndices)

	// matched*100/(total-outside) = 2*100/3
	assert.InDelta(t, 200.0/3.0, res.MatchPercent(), 1e-9)

	assert.Equal(t, []string{"a", "b", "a"}, res.PointDomains)
	assert.Equal(t, []string{"a", "a", "a"}, res.BlockDomains)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, res.PointDomainCounts())
	assert.Equal(t, map[string]int{"a": 3}, res.BlockDomainCounts())
}

// A point with negative coordinates floors into cell (-1,-1,-1), not the
// populated cell (0,0,0), even though the block's extent contains it. The
// cell decides; containment is only checked against that cell's bucket.
func TestResolve_NegativePointFloorsOutOfPopulatedCell(t *testing.T) {
	cfg := singleBlockConfig(t)

	res := Resolve([][3]float64{{-0.25, -0.25, -0.25}}, []string{"a"}, cfg)

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, Outcome{Kind: OutcomeOutside, Block: NoBlock}, res.Outcomes[0])
	assert.Equal(t, []int{0}, res.OutsideIndices)
}

func TestResolve_SharedCornerFirstMatchTieBreak(t *testing.T) {
	// Two sub-blocks share parent cell (0,0,0): block 0 spans
	// [(-1,-1,-1),(0,0,0)], block 1 spans [(0,0,0),(1,1,1)]. A point exactly
	// on the shared corner is inside both extents; the earlier-inserted block
	// must win, deterministically.
	extents, err := ComputeExtents(
		[][3]float64{{-0.5, -0.5, -0.5}, {0.5, 0.5, 0.5}},
		[][3]float64{{1, 1, 1}, {1, 1, 1}},
	)
	require.NoError(t, err)
	index, err := BuildGridIndex([][3]float64{{0, 0, 0}, {0, 0, 0}})
	require.NoError(t, err)
	cfg := ResolverConfig{
		Resolution: [3]float64{2, 2, 2},
		Index:      index,
		Extents:    extents,
		Domains:    []string{"low", "high"},
	}

	for run := 0; run < 5; run++ {
		res := Resolve([][3]float64{{0, 0, 0}}, []string{"low"}, cfg)
		require.Equal(t, Outcome{Kind: OutcomeMatched, Block: 0}, res.Outcomes[0],
			"run %d: shared-corner point must resolve to the first-inserted block", run)
	}
}

func TestResolve_DenseModelNeverUnresolved(t *testing.T) {
	// Dense model: one block per cell, blocks exactly fill their cells. Every
	// in-model point must be Matched or Mismatched, never UnresolvedInCell.
	var centroids, sizes, gridIndices [][3]float64
	var domains []string
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			centroids = append(centroids, [3]float64{float64(x) + 0.5, float64(y) + 0.5, 0.5})
			sizes = append(sizes, [3]float64{1, 1, 1})
			gridIndices = append(gridIndices, [3]float64{float64(x), float64(y), 0})
			domains = append(domains, fmt.Sprintf("d%d", (x+y)%2))
		}
	}
	extents, err := ComputeExtents(centroids, sizes)
	require.NoError(t, err)
	index, err := BuildGridIndex(gridIndices)
	require.NoError(t, err)
	cfg := ResolverConfig{Resolution: [3]float64{1, 1, 1}, Index: index, Extents: extents, Domains: domains}

	var positions [][3]float64
	var pointDomains []string
	for i := 0; i < 50; i++ {
		positions = append(positions, [3]float64{
			float64(i%3) + 0.1 + float64(i)*0.013,
			float64((i/3)%3) + 0.2,
			0.9,
		})
		pointDomains = append(pointDomains, "d0")
	}

	res := Resolve(positions, pointDomains, cfg)
	for i, o := range res.Outcomes {
		assert.NotEqual(t, OutcomeUnresolved, o.Kind, "point %d", i)
		assert.NotEqual(t, OutcomeOutside, o.Kind, "point %d", i)
	}
}

func TestResolve_OutsideCoincidesWithMissingCell(t *testing.T) {
	cfg := singleBlockConfig(t)

	positions := [][3]float64{
		{0, 0, 0},
		{5, 5, 5},
		{-3, 0, 0},
		{1.5, 0, 0}, // still cell (0,0,0), inside the populated cell
	}
	domains := []string{"a", "a", "a", "a"}
	res := Resolve(positions, domains, cfg)

	for i, p := range positions {
		_, inIndex := cfg.Index.Lookup(CellOf(p, cfg.Resolution))
		gotOutside := res.Outcomes[i].Kind == OutcomeOutside
		assert.Equal(t, !inIndex, gotOutside, "point %d: Outside must coincide exactly with a missing grid cell", i)
	}
}

func TestResolve_UnresolvedInCellAnomaly(t *testing.T) {
	// Block occupies only the lower corner of its 4-unit parent cell; a point
	// elsewhere in the cell is in a populated cell but in no block.
	extents, err := ComputeExtents([][3]float64{{0.5, 0.5, 0.5}}, [][3]float64{{1, 1, 1}})
	require.NoError(t, err)
	index, err := BuildGridIndex([][3]float64{{0, 0, 0}})
	require.NoError(t, err)
	cfg := ResolverConfig{
		Resolution: [3]float64{4, 4, 4},
		Index:      index,
		Extents:    extents,
		Domains:    []string{"a"},
	}

	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(nil)

	res := Resolve([][3]float64{{3, 3, 3}}, []string{"a"}, cfg)

	require.Equal(t, OutcomeUnresolved, res.Outcomes[0].Kind)
	assert.Equal(t, []int{0}, res.UnresolvedIndices)
	assert.Zero(t, res.Matched)
	assert.Zero(t, res.Mismatched)
	require.Len(t, logged, 1, "anomaly must be logged with point index and cell")
	assert.Contains(t, logged[0], "(0,0,0)")

	// Anomalies stay in the match-percentage denominator.
	assert.Equal(t, 0.0, res.MatchPercent())
}

func TestResolve_Idempotent(t *testing.T) {
	cfg := singleBlockConfig(t)
	positions := [][3]float64{{0, 0, 0}, {5, 5, 5}, {0.999, 0.999, 0.999}, {-1, -1, -1}}
	domains := []string{"a", "b", "b", "a"}

	first := Resolve(positions, domains, cfg)
	second := Resolve(positions, domains, cfg)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rerunning the resolver changed results (-first +second):\n%s", diff)
	}
}

func TestMatchPercent_AllMatchedIsHundred(t *testing.T) {
	cfg := singleBlockConfig(t)
	res := Resolve([][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}, {5, 5, 5}}, []string{"a", "a", "a"}, cfg)
	assert.Equal(t, 100.0, res.MatchPercent(), "every non-outside point matched")
}

func TestMatchPercent_AllOutside(t *testing.T) {
	cfg := singleBlockConfig(t)
	res := Resolve([][3]float64{{9, 9, 9}}, []string{"a"}, cfg)
	assert.Equal(t, 0.0, res.MatchPercent())
}

func TestLocate(t *testing.T) {
	extents, err := ComputeExtents(
		[][3]float64{{-0.5, -0.5, -0.5}, {0.5, 0.5, 0.5}},
		[][3]float64{{1, 1, 1}, {1, 1, 1}},
	)
	require.NoError(t, err)
	index, err := BuildGridIndex([][3]float64{{0, 0, 0}, {0, 0, 0}})
	require.NoError(t, err)
	cfg := ResolverConfig{Resolution: [3]float64{2, 2, 2}, Index: index, Extents: extents}

	res := Locate([][3]float64{
		{0, 0, 0},          // shared corner → block 0
		{0.75, 0.75, 0.75}, // block 1
		{9, 9, 9},          // outside
	}, cfg)

	assert.Equal(t, 0, res.Outcomes[0].Block)
	assert.Equal(t, 1, res.Outcomes[1].Block)
	assert.Equal(t, Outcome{Kind: OutcomeOutside, Block: NoBlock}, res.Outcomes[2])
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "matched", OutcomeMatched.String())
	assert.Equal(t, "mismatched", OutcomeMismatched.String())
	assert.Equal(t, "unresolved-in-cell", OutcomeUnresolved.String())
	assert.Equal(t, "outside", OutcomeOutside.String())
}
