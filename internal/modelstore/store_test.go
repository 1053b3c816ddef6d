package modelstore

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/domain.report/internal/geomodel"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testModel(name string) *geomodel.BlockModel {
	return &geomodel.BlockModel{
		Name: name,
		Centroids: [][3]float64{
			{1, 1, 1},
			{3, 1, 1},
		},
		Sizes:       [][3]float64{{2, 2, 2}, {2, 2, 2}},
		GridIndices: [][3]float64{{0, 0, 0}, {1, 0, 0}},
		Domains:     []string{"oxide", "fresh"},
		Visibility:  []bool{true, true},
		Resolution:  [3]float64{2, 2, 2},
		Counts:      [3]int{2, 1, 1},
		Transform:   geomodel.IdentityTransform(),
	}
}

func TestOpen_EnforcesForeignKeys(t *testing.T) {
	s := openTestStore(t)

	var enabled int
	if err := s.QueryRow(`PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		t.Fatalf("reading foreign_keys pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatal("foreign_keys pragma is off; replace-by-name depends on ON DELETE CASCADE")
	}
}

func TestSaveBlockModel_ReplaceClearsChildRows(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveBlockModel(testModel("bm/geology")); err != nil {
		t.Fatalf("SaveBlockModel: %v", err)
	}
	if err := s.SaveBlockModel(testModel("bm/geology")); err != nil {
		t.Fatalf("SaveBlockModel (replace): %v", err)
	}

	var blocks int
	if err := s.QueryRow(`SELECT COUNT(*) FROM blocks`).Scan(&blocks); err != nil {
		t.Fatalf("counting blocks: %v", err)
	}
	if blocks != 2 {
		t.Errorf("blocks table holds %d rows after replace, want 2 (no orphans)", blocks)
	}
}

func TestBlockModelRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := testModel("bm/geology")
	want.Transform.Origin = [3]float64{100, 200, -50}
	if err := s.SaveBlockModel(want); err != nil {
		t.Fatalf("SaveBlockModel: %v", err)
	}

	got, err := s.LoadBlockModel("bm/geology")
	if err != nil {
		t.Fatalf("LoadBlockModel: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("model round trip (-want +got):\n%s", diff)
	}
}

func TestSaveBlockModel_ReplacesByName(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveBlockModel(testModel("bm/geology")); err != nil {
		t.Fatalf("SaveBlockModel: %v", err)
	}

	smaller := testModel("bm/geology")
	smaller.Centroids = smaller.Centroids[:1]
	smaller.Sizes = smaller.Sizes[:1]
	smaller.GridIndices = smaller.GridIndices[:1]
	smaller.Domains = smaller.Domains[:1]
	smaller.Visibility = smaller.Visibility[:1]
	smaller.Counts = [3]int{1, 1, 1}
	if err := s.SaveBlockModel(smaller); err != nil {
		t.Fatalf("SaveBlockModel (replace): %v", err)
	}

	got, err := s.LoadBlockModel("bm/geology")
	if err != nil {
		t.Fatalf("LoadBlockModel: %v", err)
	}
	if got.BlockCount() != 1 {
		t.Errorf("BlockCount() = %d after replace, want 1", got.BlockCount())
	}
}

func TestLoadBlockModel_Missing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LoadBlockModel("nope"); err == nil {
		t.Error("expected an error for a missing model")
	}
}

func TestPointSetRoundTrip_FoldsLabels(t *testing.T) {
	s := openTestStore(t)

	ps, err := geomodel.NewPointSet("samples/dh",
		[][3]float64{{0.5, 0.5, 0.5}, {9, 9, 9}},
		[]string{"Oxide", "FRESH"},
		[]bool{true, false},
	)
	if err != nil {
		t.Fatalf("NewPointSet: %v", err)
	}
	if err := s.SavePointSet(ps); err != nil {
		t.Fatalf("SavePointSet: %v", err)
	}

	got, err := s.LoadPointSet("samples/dh")
	if err != nil {
		t.Fatalf("LoadPointSet: %v", err)
	}
	if diff := cmp.Diff(ps, got); diff != "" {
		t.Errorf("point set round trip (-want +got):\n%s", diff)
	}
	if got.Domains[0] != "oxide" || got.Domains[1] != "fresh" {
		t.Errorf("labels not lowercase after load: %v", got.Domains)
	}
}

func TestUpdateVisibility(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveBlockModel(testModel("bm/geology")); err != nil {
		t.Fatalf("SaveBlockModel: %v", err)
	}
	if err := s.UpdateBlockVisibility("bm/geology", []bool{false, true}); err != nil {
		t.Fatalf("UpdateBlockVisibility: %v", err)
	}
	got, err := s.LoadBlockModel("bm/geology")
	if err != nil {
		t.Fatalf("LoadBlockModel: %v", err)
	}
	if got.Visibility[0] || !got.Visibility[1] {
		t.Errorf("visibility = %v, want [false true]", got.Visibility)
	}

	ps, _ := geomodel.NewPointSet("p", [][3]float64{{0, 0, 0}}, []string{"a"}, nil)
	if err := s.SavePointSet(ps); err != nil {
		t.Fatalf("SavePointSet: %v", err)
	}
	if err := s.UpdatePointVisibility("p", []bool{false}); err != nil {
		t.Fatalf("UpdatePointVisibility: %v", err)
	}
	gotPS, err := s.LoadPointSet("p")
	if err != nil {
		t.Fatalf("LoadPointSet: %v", err)
	}
	if gotPS.Visibility[0] {
		t.Error("point visibility not updated")
	}
}

func TestRecordAndLoadRun(t *testing.T) {
	s := openTestStore(t)

	res := &geomodel.Results{
		Outcomes: make([]geomodel.Outcome, 10),
		Matched:  6, Mismatched: 2,
		OutsideIndices:    []int{3, 7},
		UnresolvedIndices: []int{9},
	}
	run := NewRun("bm/geology", "samples/dh", res)
	if run.ID == "" {
		t.Fatal("NewRun must assign a uuid")
	}
	if err := s.RecordRun(run, res); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := s.LoadRun(run.ID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if got.Matched != 6 || got.Mismatched != 2 || got.Outside != 2 || got.Unresolved != 1 {
		t.Errorf("run counts = %+v", got)
	}
	if got.MatchPercent != res.MatchPercent() {
		t.Errorf("MatchPercent = %v, want %v", got.MatchPercent, res.MatchPercent())
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero after load")
	}

	var anomalies int
	if err := s.QueryRow(`SELECT COUNT(*) FROM run_anomalies WHERE run_id = ?`, run.ID).Scan(&anomalies); err != nil {
		t.Fatalf("counting anomalies: %v", err)
	}
	if anomalies != 3 {
		t.Errorf("anomaly rows = %d, want 3", anomalies)
	}
}

func TestLoadRun_CorruptTimestamp(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Exec(`
		INSERT INTO comparison_runs (run_id, model_name, point_set, total_points,
			matched, mismatched, outside, unresolved, match_percent, created_at)
		VALUES ('r1', 'm', 'p', 0, 0, 0, 0, 0, 0, 'not-a-time')`); err != nil {
		t.Fatalf("seeding run: %v", err)
	}

	if _, err := s.LoadRun("r1"); err == nil {
		t.Error("LoadRun must reject an unparseable created_at")
	}
	if _, err := s.ListRuns(10); err == nil {
		t.Error("ListRuns must reject an unparseable created_at")
	}
}

func TestListNames(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveBlockModel(testModel("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveBlockModel(testModel("b")); err != nil {
		t.Fatal(err)
	}
	models, err := s.ListBlockModels()
	if err != nil {
		t.Fatalf("ListBlockModels: %v", err)
	}
	if len(models) != 2 || models[0] != "a" || models[1] != "b" {
		t.Errorf("ListBlockModels = %v", models)
	}

	sets, err := s.ListPointSets()
	if err != nil {
		t.Fatalf("ListPointSets: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("ListPointSets = %v, want empty", sets)
	}
}
