package report

import (
	"fmt"
	"io"

	"github.com/banshee-data/domain.report/internal/geomodel"
)

// Summary is the console-facing statistical report for one comparison run.
type Summary struct {
	ModelName    string
	PointSetName string
	Results      *geomodel.Results
}

// Write prints the report: match/mismatch counts, anomaly counts, the match
// percentage with outside points excluded from the denominator, and the
// domain distribution of points and blocks.
func (s *Summary) Write(w io.Writer) error {
	res := s.Results
	compared := res.Total() - res.Outside()

	fmt.Fprintf(w, "Points which match:        %d\n", res.Matched)
	fmt.Fprintf(w, "Points which do not match: %d\n", res.Mismatched)
	fmt.Fprintf(w, "Points outside the model:  %d\n", res.Outside())
	if res.Unresolved() > 0 {
		fmt.Fprintf(w, "Points in a populated cell but in no block: %d (indices %v)\n",
			res.Unresolved(), res.UnresolvedIndices)
	}
	fmt.Fprintf(w, "\nFrom %d points (excluding %d outside the block model), %d were in a block with the same domain: match percentage %.2f%%\n",
		compared, res.Outside(), res.Matched, res.MatchPercent())

	fmt.Fprintf(w, "\nDomain distribution in %s (points):\n", s.PointSetName)
	writeDistribution(w, res.PointDomains, compared)

	fmt.Fprintf(w, "\nDomain distribution in %s (blocks):\n", s.ModelName)
	writeDistribution(w, res.BlockDomains, compared)

	return nil
}

func writeDistribution(w io.Writer, labels []string, denominator int) {
	if denominator <= 0 {
		fmt.Fprintln(w, "  (no points compared)")
		return
	}
	for _, lc := range ValueCounts(labels) {
		fmt.Fprintf(w, "  %-20s %8d  %6.2f%%\n", lc.Label, lc.Count, float64(lc.Count)*100/float64(denominator))
	}
}
