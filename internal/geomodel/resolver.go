package geomodel

import (
	"strings"

	"github.com/banshee-data/domain.report/internal/monitoring"
)

// OutcomeKind classifies how one sample point resolved against the model.
type OutcomeKind uint8

const (
	// OutcomeMatched: the point fell inside a block and the labels agree.
	OutcomeMatched OutcomeKind = iota
	// OutcomeMismatched: the point fell inside a block but the labels differ.
	OutcomeMismatched
	// OutcomeUnresolved: the point's parent cell is populated but no candidate
	// block's extent contains it. A data or boundary anomaly, reported but
	// never dropped.
	OutcomeUnresolved
	// OutcomeOutside: the point's parent cell has no entry in the grid index;
	// the point lies outside the model's populated region.
	OutcomeOutside
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatched:
		return "matched"
	case OutcomeMismatched:
		return "mismatched"
	case OutcomeUnresolved:
		return "unresolved-in-cell"
	case OutcomeOutside:
		return "outside"
	}
	return "unknown"
}

// NoBlock is the Block value of outcomes with no containing block.
const NoBlock = -1

// Outcome is the resolution result for one sample point.
type Outcome struct {
	Kind  OutcomeKind
	Block int // containing block index, or NoBlock
}

// ResolverConfig bundles the immutable model-side inputs of a resolution run.
// All of it is built once and read-only for the duration of the run; the
// resolver shares no state between calls.
type ResolverConfig struct {
	Resolution [3]float64
	Index      *GridIndex
	Extents    []Extent
	Domains    []string // per-block domain attribute values
}

// Results collects everything a resolution run produces. Counts and index
// lists are derived purely from Outcomes; they are carried explicitly so the
// reporting layer never re-derives them.
type Results struct {
	Outcomes []Outcome

	Matched           int
	Mismatched        int
	OutsideIndices    []int // point indices outside the model
	UnresolvedIndices []int // point indices in a populated cell but in no block

	// PointDomains / BlockDomains are the aligned label pairs of every point
	// that resolved to a containing block, feeding the confusion matrix.
	PointDomains []string
	BlockDomains []string
}

// Total returns the number of points resolved.
func (r *Results) Total() int { return len(r.Outcomes) }

// Outside returns the number of points outside the model.
func (r *Results) Outside() int { return len(r.OutsideIndices) }

// Unresolved returns the number of in-cell containment anomalies.
func (r *Results) Unresolved() int { return len(r.UnresolvedIndices) }

// MatchPercent returns 100 × matched / (total − outside). Points outside the
// model are excluded from the denominator; unresolved anomalies are not.
// Returns 0 when every point was outside.
func (r *Results) MatchPercent() float64 {
	denom := r.Total() - r.Outside()
	if denom <= 0 {
		return 0
	}
	return float64(r.Matched) * 100 / float64(denom)
}

// PointDomainCounts returns the frequency table of domain labels over all
// points that resolved to a containing block.
func (r *Results) PointDomainCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range r.PointDomains {
		counts[d]++
	}
	return counts
}

// BlockDomainCounts returns the frequency table of block domain labels over
// all points that resolved to a containing block.
func (r *Results) BlockDomainCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range r.BlockDomains {
		counts[d]++
	}
	return counts
}

// Resolve classifies every sample point against the block model. Points must
// already be in the model's local frame (BlockModel.LocalizePoints); the
// point set's domain labels are already lowercase, so only the block side is
// folded here.
//
// Per point: floor-bucket into a parent cell, look the cell up in the grid
// index (absent cell → Outside), then test the cell's candidate blocks in
// stored order with inclusive bounds on all three axes. The first containing
// candidate wins; on a shared face between two blocks the earlier-inserted
// block is selected, deterministically. A populated cell whose candidates all
// fail the containment test is an anomaly, logged with the point index and
// cell for diagnosis.
func Resolve(positions [][3]float64, domains []string, cfg ResolverConfig) *Results {
	blockDomains := make([]string, len(cfg.Domains))
	for i, d := range cfg.Domains {
		blockDomains[i] = strings.ToLower(d)
	}

	res := &Results{Outcomes: make([]Outcome, len(positions))}
	for i, p := range positions {
		cell := CellOf(p, cfg.Resolution)
		candidates, ok := cfg.Index.Lookup(cell)
		if !ok {
			res.Outcomes[i] = Outcome{Kind: OutcomeOutside, Block: NoBlock}
			res.OutsideIndices = append(res.OutsideIndices, i)
			continue
		}

		found := NoBlock
		for _, block := range candidates {
			if cfg.Extents[block].Contains(p) {
				found = block
				break
			}
		}
		if found == NoBlock {
			res.Outcomes[i] = Outcome{Kind: OutcomeUnresolved, Block: NoBlock}
			res.UnresolvedIndices = append(res.UnresolvedIndices, i)
			monitoring.Logf("point %d in populated cell (%d,%d,%d) but contained by no block",
				i, cell[0], cell[1], cell[2])
			continue
		}

		kind := OutcomeMismatched
		if domains[i] == blockDomains[found] {
			kind = OutcomeMatched
			res.Matched++
		} else {
			res.Mismatched++
		}
		res.Outcomes[i] = Outcome{Kind: kind, Block: found}
		res.PointDomains = append(res.PointDomains, domains[i])
		res.BlockDomains = append(res.BlockDomains, blockDomains[found])
	}
	return res
}

// Locate runs the containment search without any label comparison: every
// position resolves to a containing block index or NoBlock. Used by the
// model-vs-model comparison, where the probe lattice has no labels of its own.
func Locate(positions [][3]float64, cfg ResolverConfig) *Results {
	res := &Results{Outcomes: make([]Outcome, len(positions))}
	for i, p := range positions {
		cell := CellOf(p, cfg.Resolution)
		candidates, ok := cfg.Index.Lookup(cell)
		if !ok {
			res.Outcomes[i] = Outcome{Kind: OutcomeOutside, Block: NoBlock}
			res.OutsideIndices = append(res.OutsideIndices, i)
			continue
		}
		found := NoBlock
		for _, block := range candidates {
			if cfg.Extents[block].Contains(p) {
				found = block
				break
			}
		}
		if found == NoBlock {
			res.Outcomes[i] = Outcome{Kind: OutcomeUnresolved, Block: NoBlock}
			res.UnresolvedIndices = append(res.UnresolvedIndices, i)
			monitoring.Logf("probe %d in populated cell (%d,%d,%d) but contained by no block",
				i, cell[0], cell[1], cell[2])
			continue
		}
		res.Outcomes[i] = Outcome{Kind: OutcomeMatched, Block: found}
	}
	return res
}
