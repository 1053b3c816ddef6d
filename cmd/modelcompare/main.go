// Package main provides model-vs-model domain comparison. Two block models
// covering the same volume rarely share a block lattice, so the tool probes
// both with a common synthetic lattice: cell sizes are the per-axis greatest
// common divisor of the two sub-block sizes, guaranteeing every probe falls
// wholly inside at most one block of each model.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/domain.report/internal/geomodel"
	"github.com/banshee-data/domain.report/internal/modelstore"
	"github.com/banshee-data/domain.report/internal/report"
)

// Config holds configuration for a model comparison.
type Config struct {
	DBPath    string
	ModelA    string
	ModelB    string
	SubA      string
	SubB      string
	TopN      int
	OutputDir string
}

func main() {
	cfg := parseFlags()

	if cfg.ModelA == "" || cfg.ModelB == "" {
		log.Fatal("Both model names are required (-a, -b)")
	}

	subA, err := parseTriple(cfg.SubA)
	if err != nil {
		log.Fatalf("Invalid -sub-a: %v", err)
	}
	subB, err := parseTriple(cfg.SubB)
	if err != nil {
		log.Fatalf("Invalid -sub-b: %v", err)
	}

	store, err := modelstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store %s: %v", cfg.DBPath, err)
	}
	defer store.Close()

	modelA, err := store.LoadBlockModel(cfg.ModelA)
	if err != nil {
		log.Fatalf("Failed to load model %s: %v", cfg.ModelA, err)
	}
	modelB, err := store.LoadBlockModel(cfg.ModelB)
	if err != nil {
		log.Fatalf("Failed to load model %s: %v", cfg.ModelB, err)
	}

	if modelA.TotalLength() != modelB.TotalLength() {
		log.Fatalf("Models cover different volumes: %v vs %v", modelA.TotalLength(), modelB.TotalLength())
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	if err := runComparison(modelA, modelB, subA, subB, cfg); err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DBPath, "db", "domain.db", "Path to the model store database")
	flag.StringVar(&cfg.ModelA, "a", "", "First block model name")
	flag.StringVar(&cfg.ModelB, "b", "", "Second block model name")
	flag.StringVar(&cfg.SubA, "sub-a", "", "Sub-block size of model A as 'x y z' (defaults to its resolution)")
	flag.StringVar(&cfg.SubB, "sub-b", "", "Sub-block size of model B as 'x y z' (defaults to its resolution)")
	flag.IntVar(&cfg.TopN, "topn", 10, "Fold all but the N most frequent domains into 'others' (0 disables)")
	flag.StringVar(&cfg.OutputDir, "output", "", "Output directory for heatmap artifacts")

	flag.Parse()

	return cfg
}

// parseTriple parses "x y z" into three floats. An empty string yields zeros,
// which callers replace with the model resolution.
func parseTriple(s string) ([3]float64, error) {
	var v [3]float64
	if s == "" {
		return v, nil
	}
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return v, fmt.Errorf("expected three values, got %d", len(fields))
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v, fmt.Errorf("value %d (%q): %w", i, f, err)
		}
		v[i] = x
	}
	return v, nil
}

func runComparison(modelA, modelB *geomodel.BlockModel, subA, subB [3]float64, cfg Config) error {
	if subA == ([3]float64{}) {
		subA = modelA.Resolution
	}
	if subB == ([3]float64{}) {
		subB = modelB.Resolution
	}

	cell := geomodel.CellGCD(subA, subB)
	probes, err := geomodel.BuildLattice(modelA.TotalLength(), cell)
	if err != nil {
		return fmt.Errorf("building probe lattice: %w", err)
	}
	log.Printf("Probing both models with %d lattice cells of size %v", len(probes), cell)

	resA, err := locate(modelA, probes)
	if err != nil {
		return fmt.Errorf("locating probes in %s: %v", modelA.Name, err)
	}
	resB, err := locate(modelB, probes)
	if err != nil {
		return fmt.Errorf("locating probes in %s: %v", modelB.Name, err)
	}

	// Keep only probes that landed in a block of both models.
	var domainsA, domainsB []string
	for i := range probes {
		a, b := resA.Outcomes[i], resB.Outcomes[i]
		if a.Block == geomodel.NoBlock || b.Block == geomodel.NoBlock {
			continue
		}
		domainsA = append(domainsA, strings.ToLower(modelA.Domains[a.Block]))
		domainsB = append(domainsB, strings.ToLower(modelB.Domains[b.Block]))
	}

	printAgreement(modelA.Name, modelB.Name, domainsA, domainsB, len(probes))

	if cfg.OutputDir == "" {
		return nil
	}
	title := fmt.Sprintf("%s vs %s", modelA.Name, modelB.Name)
	full, err := report.Crosstab(domainsA, domainsB)
	if err != nil {
		return err
	}
	if err := report.SaveHeatmapPNG(full, title, filepath.Join(cfg.OutputDir, "entire_matrix.png")); err != nil {
		return fmt.Errorf("saving PNG heatmap: %w", err)
	}
	folded := full
	if cfg.TopN > 0 {
		if folded, err = report.TopN(domainsA, domainsB, cfg.TopN); err != nil {
			return err
		}
	}
	f, err := os.Create(filepath.Join(cfg.OutputDir, "confusion_matrix.html"))
	if err != nil {
		return err
	}
	defer f.Close()
	return report.RenderHeatmapHTML(folded, title, f)
}

func locate(model *geomodel.BlockModel, probes [][3]float64) (*geomodel.Results, error) {
	extents, err := geomodel.ComputeExtents(model.LocalCentroids(), model.Sizes)
	if err != nil {
		return nil, err
	}
	index, err := geomodel.BuildGridIndex(model.GridIndices)
	if err != nil {
		return nil, err
	}
	return geomodel.Locate(probes, geomodel.ResolverConfig{
		Resolution: model.Resolution,
		Index:      index,
		Extents:    extents,
		Domains:    model.Domains,
	}), nil
}

func printAgreement(nameA, nameB string, domainsA, domainsB []string, probeCount int) {
	matches := 0
	for i := range domainsA {
		if domainsA[i] == domainsB[i] {
			matches++
		}
	}
	pct := 0.0
	if len(domainsA) > 0 {
		pct = float64(matches) * 100 / float64(len(domainsA))
	}

	fmt.Printf("Probes: %d (%d inside both models)\n", probeCount, len(domainsA))
	fmt.Printf("Domain agreement: %.2f%%\n", pct)

	fmt.Printf("\n%s domain distribution:\n", nameA)
	for _, lc := range report.ValueCounts(domainsA) {
		fmt.Printf("  %-20s %d\n", lc.Label, lc.Count)
	}
	fmt.Printf("\n%s domain distribution:\n", nameB)
	for _, lc := range report.ValueCounts(domainsB) {
		fmt.Printf("  %-20s %d\n", lc.Label, lc.Count)
	}
}
