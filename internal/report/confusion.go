// Package report turns resolution results into the statistical artefacts the
// original workflow produced: domain frequency tables, the point-vs-block
// confusion matrix, a console summary, and PNG/HTML heatmap renderings.
package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// OthersLabel is the fold target for labels outside a top-N restriction.
const OthersLabel = "others"

// ConfusionMatrix is a crosstab of point domains (rows) against block domains
// (columns). Counts[r][c] is the number of resolved points whose own label is
// RowLabels[r] and whose containing block carries ColLabels[c].
type ConfusionMatrix struct {
	RowLabels []string
	ColLabels []string
	Counts    *mat.Dense
}

// Crosstab builds the confusion matrix from aligned label pairs, one pair per
// point that resolved to a containing block. Labels are sorted so repeated
// runs produce identical matrices.
func Crosstab(pointDomains, blockDomains []string) (*ConfusionMatrix, error) {
	if len(pointDomains) != len(blockDomains) {
		return nil, fmt.Errorf("report: %d point labels vs %d block labels", len(pointDomains), len(blockDomains))
	}

	rows := sortedUnique(pointDomains)
	cols := sortedUnique(blockDomains)
	rowIdx := indexOf(rows)
	colIdx := indexOf(cols)

	counts := mat.NewDense(max(len(rows), 1), max(len(cols), 1), nil)
	for i := range pointDomains {
		counts.Set(rowIdx[pointDomains[i]], colIdx[blockDomains[i]], counts.At(rowIdx[pointDomains[i]], colIdx[blockDomains[i]])+1)
	}

	return &ConfusionMatrix{RowLabels: rows, ColLabels: cols, Counts: counts}, nil
}

// Total returns the grand total of all cells.
func (m *ConfusionMatrix) Total() float64 {
	return mat.Sum(m.Counts)
}

// Proportions returns a copy of the matrix with every cell divided by the
// grand total, so cells sum to 1. A zero-total matrix is returned unchanged.
func (m *ConfusionMatrix) Proportions() *mat.Dense {
	r, c := m.Counts.Dims()
	out := mat.NewDense(r, c, nil)
	total := m.Total()
	if total == 0 {
		return out
	}
	out.Scale(1/total, m.Counts)
	return out
}

// At returns the count for a row/column label pair, 0 when either label is
// not present.
func (m *ConfusionMatrix) At(rowLabel, colLabel string) float64 {
	r := indexOf(m.RowLabels)
	c := indexOf(m.ColLabels)
	ri, ok1 := r[rowLabel]
	ci, ok2 := c[colLabel]
	if !ok1 || !ok2 {
		return 0
	}
	return m.Counts.At(ri, ci)
}

// TopN folds all but the n most frequent labels on each axis into an "others"
// bucket and rebuilds the matrix. n <= 0 folds everything into "others";
// n at or above the label count returns an equivalent matrix.
func TopN(pointDomains, blockDomains []string, n int) (*ConfusionMatrix, error) {
	keepRows := topLabels(pointDomains, n)
	keepCols := topLabels(blockDomains, n)

	foldedRows := foldLabels(pointDomains, keepRows)
	foldedCols := foldLabels(blockDomains, keepCols)
	return Crosstab(foldedRows, foldedCols)
}

// topLabels returns the n most frequent labels, ties broken alphabetically.
func topLabels(labels []string, n int) map[string]bool {
	counts := ValueCounts(labels)
	keep := make(map[string]bool, n)
	for i := 0; i < n && i < len(counts); i++ {
		keep[counts[i].Label] = true
	}
	return keep
}

func foldLabels(labels []string, keep map[string]bool) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		if keep[l] {
			out[i] = l
		} else {
			out[i] = OthersLabel
		}
	}
	return out
}

// LabelCount is one row of a frequency table.
type LabelCount struct {
	Label string
	Count int
}

// ValueCounts returns the frequency table of labels sorted by descending
// count, ties broken alphabetically.
func ValueCounts(labels []string) []LabelCount {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func sortedUnique(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

func indexOf(labels []string) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}
