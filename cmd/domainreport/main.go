// Package main provides the domain comparison report tool. It resolves each
// point of a stored point set against a stored block model, prints the match
// summary, renders the confusion matrix as a PNG and an interactive HTML
// heatmap, and records the run in the store.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/domain.report/internal/api"
	"github.com/banshee-data/domain.report/internal/geomodel"
	"github.com/banshee-data/domain.report/internal/modelstore"
	"github.com/banshee-data/domain.report/internal/report"
	"github.com/banshee-data/domain.report/internal/version"
)

// Config holds configuration for a report run.
type Config struct {
	DBPath         string
	ModelName      string
	PointSetName   string
	TopN           int
	OutputDir      string
	OutputJSON     string
	FilterMismatch bool
	ListenAddr     string
	MigrationsDir  string
	Migrate        string
}

// RunResult is the JSON export shape for a single comparison run.
type RunResult struct {
	RunID        string         `json:"run_id"`
	Model        string         `json:"model"`
	PointSet     string         `json:"point_set"`
	TotalPoints  int            `json:"total_points"`
	Matched      int            `json:"matched"`
	Mismatched   int            `json:"mismatched"`
	Outside      int            `json:"outside"`
	Unresolved   int            `json:"unresolved"`
	MatchPercent float64        `json:"match_percent"`
	PointDomains map[string]int `json:"point_domains"`
	BlockDomains map[string]int `json:"block_domains"`
}

func main() {
	cfg := parseFlags()
	log.Printf("domainreport %s", version.String())

	store, err := modelstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store %s: %v", cfg.DBPath, err)
	}
	defer store.Close()

	if cfg.Migrate != "" {
		if err := runMigration(store, cfg); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		// Migration-only invocation.
		if cfg.PointSetName == "" {
			return
		}
	}

	if cfg.PointSetName == "" {
		log.Fatal("Point set name is required (-points)")
	}

	model, err := selectModel(store, cfg.ModelName)
	if err != nil {
		log.Fatalf("Failed to select block model: %v", err)
	}
	points, err := store.LoadPointSet(cfg.PointSetName)
	if err != nil {
		log.Fatalf("Failed to load point set %s: %v", cfg.PointSetName, err)
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	res, err := runComparison(model, points)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	summary := report.Summary{
		ModelName:    model.Name,
		PointSetName: points.Name,
		Results:      res,
	}
	if err := summary.Write(os.Stdout); err != nil {
		log.Fatalf("Failed to write summary: %v", err)
	}

	full, folded, err := buildMatrices(res, cfg.TopN)
	if err != nil {
		log.Fatalf("Failed to build confusion matrix: %v", err)
	}

	if cfg.OutputDir != "" {
		if err := writeArtifacts(full, folded, model.Name, points.Name, cfg.OutputDir); err != nil {
			log.Fatalf("Failed to write artifacts: %v", err)
		}
	}

	run := modelstore.NewRun(model.Name, points.Name, res)
	if err := store.RecordRun(run, res); err != nil {
		log.Printf("Warning: failed to record run: %v", err)
	} else {
		log.Printf("Recorded run %s", run.ID)
	}

	if cfg.FilterMismatch {
		if err := applyMismatchFilter(store, model, points, res); err != nil {
			log.Fatalf("Failed to update visibility: %v", err)
		}
		log.Printf("Visibility narrowed to %d mismatched blocks and points", res.Mismatched)
	}

	if cfg.OutputJSON != "" {
		outputPath := cfg.OutputJSON
		if cfg.OutputDir != "" {
			outputPath = filepath.Join(cfg.OutputDir, cfg.OutputJSON)
		}
		if err := exportJSON(run, res, outputPath); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", outputPath)
		}
	}

	if cfg.ListenAddr != "" {
		serve(store, full, folded, model.Name, points.Name, cfg.ListenAddr)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DBPath, "db", "domain.db", "Path to the model store database")
	flag.StringVar(&cfg.ModelName, "model", "", "Block model name (may be omitted when the store holds exactly one)")
	flag.StringVar(&cfg.PointSetName, "points", "", "Point set name")
	flag.IntVar(&cfg.TopN, "topn", 10, "Fold all but the N most frequent domains into 'others' (0 disables)")
	flag.StringVar(&cfg.OutputDir, "output", "", "Output directory for heatmap artifacts")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., results.json)")
	flag.BoolVar(&cfg.FilterMismatch, "filter-mismatch", false, "Narrow stored visibility to mismatched blocks and points")
	flag.StringVar(&cfg.ListenAddr, "serve", "", "Serve heatmaps and admin routes on this address (e.g., :8080)")
	flag.StringVar(&cfg.MigrationsDir, "migrations", "migrations", "Path to the migrations directory")
	flag.StringVar(&cfg.Migrate, "migrate", "", "Run a migration before the report: up, down, or version")

	flag.Parse()

	return cfg
}

func runMigration(store *modelstore.Store, cfg Config) error {
	switch cfg.Migrate {
	case "up":
		return store.MigrateUp(cfg.MigrationsDir)
	case "down":
		return store.MigrateDown(cfg.MigrationsDir)
	case "version":
		v, dirty, err := store.MigrateVersion(cfg.MigrationsDir)
		if err != nil {
			return err
		}
		log.Printf("Store at migration version %d (dirty=%v)", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q", cfg.Migrate)
	}
}

// selectModel loads the named model, or the only stored model when name is
// empty. Anything else is an error: the comparison needs exactly one model.
func selectModel(store *modelstore.Store, name string) (*geomodel.BlockModel, error) {
	if name != "" {
		return store.LoadBlockModel(name)
	}
	names, err := store.ListBlockModels()
	if err != nil {
		return nil, err
	}
	if len(names) != 1 {
		return nil, fmt.Errorf("select exactly one block model with -model (store holds %d: %s)",
			len(names), strings.Join(names, ", "))
	}
	return store.LoadBlockModel(names[0])
}

func runComparison(model *geomodel.BlockModel, points *geomodel.PointSet) (*geomodel.Results, error) {
	start := time.Now()

	extents, err := geomodel.ComputeExtents(model.LocalCentroids(), model.Sizes)
	if err != nil {
		return nil, fmt.Errorf("computing block extents: %w", err)
	}
	index, err := geomodel.BuildGridIndex(model.GridIndices)
	if err != nil {
		return nil, fmt.Errorf("building grid index: %w", err)
	}
	log.Printf("Indexed %d blocks into %d grid cells", model.BlockCount(), index.CellCount())

	local := model.LocalizePoints(points.Positions)
	res := geomodel.Resolve(local, points.Domains, geomodel.ResolverConfig{
		Resolution: model.Resolution,
		Index:      index,
		Extents:    extents,
		Domains:    model.Domains,
	})

	log.Printf("Resolved %d points in %s", res.Total(), time.Since(start).Round(time.Millisecond))
	return res, nil
}

func buildMatrices(res *geomodel.Results, topN int) (full, folded *report.ConfusionMatrix, err error) {
	full, err = report.Crosstab(res.PointDomains, res.BlockDomains)
	if err != nil {
		return nil, nil, err
	}
	folded = full
	if topN > 0 {
		folded, err = report.TopN(res.PointDomains, res.BlockDomains, topN)
		if err != nil {
			return nil, nil, err
		}
	}
	return full, folded, nil
}

func writeArtifacts(full, folded *report.ConfusionMatrix, modelName, pointSetName, dir string) error {
	title := fmt.Sprintf("%s vs %s", pointSetName, modelName)

	if err := report.SaveHeatmapPNG(full, title, filepath.Join(dir, "entire_matrix.png")); err != nil {
		return fmt.Errorf("saving PNG heatmap: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "confusion_matrix.html"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.RenderHeatmapHTML(folded, title, f); err != nil {
		return fmt.Errorf("rendering HTML heatmap: %w", err)
	}
	return nil
}

// applyMismatchFilter narrows stored visibility so downstream viewers show
// only the disagreement: mismatched blocks and the points that hit them.
func applyMismatchFilter(store *modelstore.Store, model *geomodel.BlockModel, points *geomodel.PointSet, res *geomodel.Results) error {
	blockVisible := make([]bool, model.BlockCount())
	pointVisible := make([]bool, len(res.Outcomes))
	for i, o := range res.Outcomes {
		if o.Kind == geomodel.OutcomeMismatched {
			pointVisible[i] = true
			blockVisible[o.Block] = true
		}
	}
	if err := store.UpdateBlockVisibility(model.Name, blockVisible); err != nil {
		return err
	}
	return store.UpdatePointVisibility(points.Name, pointVisible)
}

func exportJSON(run modelstore.Run, res *geomodel.Results, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result := RunResult{
		RunID:        run.ID,
		Model:        run.ModelName,
		PointSet:     run.PointSet,
		TotalPoints:  run.TotalPoints,
		Matched:      run.Matched,
		Mismatched:   run.Mismatched,
		Outside:      run.Outside,
		Unresolved:   run.Unresolved,
		MatchPercent: run.MatchPercent,
		PointDomains: res.PointDomainCounts(),
		BlockDomains: res.BlockDomainCounts(),
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func serve(store *modelstore.Store, full, folded *report.ConfusionMatrix, modelName, pointSetName, addr string) {
	title := fmt.Sprintf("%s vs %s", pointSetName, modelName)

	server := api.NewServer(store, full, folded, title)
	mux := server.ServeMux()
	store.AttachAdminRoutes(mux)

	log.Printf("Serving on %s (/matrix, /matrix/full, /api/runs)", addr)
	if err := http.ListenAndServe(addr, api.LoggingMiddleware(mux)); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
