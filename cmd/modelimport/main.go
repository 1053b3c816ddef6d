// Package main imports block models and point sets from CSV exports into the
// model store, and lists what the store already holds.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/domain.report/internal/geomodel"
	"github.com/banshee-data/domain.report/internal/ingest"
	"github.com/banshee-data/domain.report/internal/modelstore"
)

// Config holds configuration for an import.
type Config struct {
	DBPath     string
	Kind       string
	Name       string
	CSVPath    string
	Resolution string
	Counts     string
	Origin     string
	Rotation   string
	List       bool
}

func main() {
	cfg := parseFlags()

	store, err := modelstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store %s: %v", cfg.DBPath, err)
	}
	defer store.Close()

	if cfg.List {
		if err := listContents(store); err != nil {
			log.Fatalf("Failed to list store contents: %v", err)
		}
		return
	}

	if cfg.Name == "" || cfg.CSVPath == "" {
		log.Fatal("Both -name and -csv are required")
	}

	f, err := os.Open(cfg.CSVPath)
	if err != nil {
		log.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()

	switch cfg.Kind {
	case "model":
		if err := importModel(store, f, cfg); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	case "points":
		ps, err := ingest.ReadPointSet(f, cfg.Name)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		if err := store.SavePointSet(ps); err != nil {
			log.Fatalf("Failed to save point set: %v", err)
		}
		log.Printf("Imported point set %s (%d points)", ps.Name, ps.Len())
	default:
		log.Fatalf("Unknown kind %q: want model or points", cfg.Kind)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DBPath, "db", "domain.db", "Path to the model store database")
	flag.StringVar(&cfg.Kind, "kind", "model", "What to import: model or points")
	flag.StringVar(&cfg.Name, "name", "", "Name to store the model or point set under")
	flag.StringVar(&cfg.CSVPath, "csv", "", "Path to the CSV export")
	flag.StringVar(&cfg.Resolution, "res", "", "Parent block resolution as 'x y z' (model only)")
	flag.StringVar(&cfg.Counts, "counts", "", "Parent grid counts as 'nx ny nz' (model only)")
	flag.StringVar(&cfg.Origin, "origin", "0 0 0", "World origin of the model as 'x y z'")
	flag.StringVar(&cfg.Rotation, "rotation", "", "Row-major 3x3 rotation as nine values (identity when omitted)")
	flag.BoolVar(&cfg.List, "list", false, "List stored block models and point sets, then exit")

	flag.Parse()

	return cfg
}

func importModel(store *modelstore.Store, f *os.File, cfg Config) error {
	res, err := parseFloatsN(cfg.Resolution, 3)
	if err != nil {
		return fmt.Errorf("invalid -res: %w", err)
	}
	countsF, err := parseFloatsN(cfg.Counts, 3)
	if err != nil {
		return fmt.Errorf("invalid -counts: %w", err)
	}
	origin, err := parseFloatsN(cfg.Origin, 3)
	if err != nil {
		return fmt.Errorf("invalid -origin: %w", err)
	}

	transform := geomodel.IdentityTransform()
	transform.Origin = [3]float64{origin[0], origin[1], origin[2]}
	if cfg.Rotation != "" {
		rot, err := parseFloatsN(cfg.Rotation, 9)
		if err != nil {
			return fmt.Errorf("invalid -rotation: %w", err)
		}
		copy(transform.Rotation[:], rot)
	}

	m, err := ingest.ReadBlockModel(f, cfg.Name,
		[3]float64{res[0], res[1], res[2]},
		[3]int{int(countsF[0]), int(countsF[1]), int(countsF[2])},
		transform)
	if err != nil {
		return err
	}
	if err := store.SaveBlockModel(m); err != nil {
		return err
	}
	log.Printf("Imported block model %s (%d blocks)", m.Name, m.BlockCount())
	return nil
}

func listContents(store *modelstore.Store) error {
	models, err := store.ListBlockModels()
	if err != nil {
		return err
	}
	pointSets, err := store.ListPointSets()
	if err != nil {
		return err
	}
	fmt.Printf("Block models (%d):\n", len(models))
	for _, name := range models {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("Point sets (%d):\n", len(pointSets))
	for _, name := range pointSets {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func parseFloatsN(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (%q): %w", i, f, err)
		}
		out[i] = v
	}
	return out, nil
}
