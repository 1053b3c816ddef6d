// Package modelstore persists block models, point sets and comparison runs in
// SQLite. It is the concrete form of the external spatial data store the
// comparison pipeline reads from and reports into: the core never touches SQL,
// it sees BlockModel and PointSet snapshots loaded here once per run.
package modelstore

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/domain.report/internal/geomodel"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the SQLite handle.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the store at path and applies the baseline
// schema. Foreign keys are off by default in SQLite and must be switched on
// per connection; replace-by-name relies on ON DELETE CASCADE clearing the
// child block and point rows.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("modelstore: applying schema: %w", err)
	}
	return &Store{db}, nil
}

// SaveBlockModel stores a block model under its name, replacing any previous
// model of the same name.
func (s *Store) SaveBlockModel(m *geomodel.BlockModel) error {
	if err := m.Validate(); err != nil {
		return err
	}
	rotation, err := json.Marshal(m.Transform.Rotation)
	if err != nil {
		return err
	}

	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM block_models WHERE name = ?`, m.Name); err != nil {
		return fmt.Errorf("modelstore: replacing model %q: %w", m.Name, err)
	}
	res, err := tx.Exec(`
		INSERT INTO block_models (name, res_x, res_y, res_z, count_x, count_y, count_z,
			origin_x, origin_y, origin_z, rotation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Resolution[0], m.Resolution[1], m.Resolution[2],
		m.Counts[0], m.Counts[1], m.Counts[2],
		m.Transform.Origin[0], m.Transform.Origin[1], m.Transform.Origin[2],
		string(rotation),
	)
	if err != nil {
		return fmt.Errorf("modelstore: inserting model %q: %w", m.Name, err)
	}
	modelID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO blocks (model_id, block_idx, cx, cy, cz, sx, sy, sz, gx, gy, gz, domain, visible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range m.Centroids {
		visible := true
		if m.Visibility != nil {
			visible = m.Visibility[i]
		}
		c, sz, g := m.Centroids[i], m.Sizes[i], m.GridIndices[i]
		if _, err := stmt.Exec(modelID, i, c[0], c[1], c[2], sz[0], sz[1], sz[2],
			g[0], g[1], g[2], m.Domains[i], visible); err != nil {
			return fmt.Errorf("modelstore: inserting block %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadBlockModel reads the named block model, blocks ordered by their
// in-model index so the grid index rebuild preserves insertion order.
func (s *Store) LoadBlockModel(name string) (*geomodel.BlockModel, error) {
	m := &geomodel.BlockModel{Name: name, Transform: geomodel.IdentityTransform()}
	var modelID int64
	var rotation string
	err := s.QueryRow(`
		SELECT model_id, res_x, res_y, res_z, count_x, count_y, count_z,
			origin_x, origin_y, origin_z, rotation
		FROM block_models WHERE name = ?`, name).Scan(
		&modelID, &m.Resolution[0], &m.Resolution[1], &m.Resolution[2],
		&m.Counts[0], &m.Counts[1], &m.Counts[2],
		&m.Transform.Origin[0], &m.Transform.Origin[1], &m.Transform.Origin[2],
		&rotation,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("modelstore: no block model named %q", name)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rotation), &m.Transform.Rotation); err != nil {
		return nil, fmt.Errorf("modelstore: model %q rotation: %w", name, err)
	}

	rows, err := s.Query(`
		SELECT cx, cy, cz, sx, sy, sz, gx, gy, gz, domain, visible
		FROM blocks WHERE model_id = ? ORDER BY block_idx`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c, sz, g [3]float64
		var domain string
		var visible bool
		if err := rows.Scan(&c[0], &c[1], &c[2], &sz[0], &sz[1], &sz[2],
			&g[0], &g[1], &g[2], &domain, &visible); err != nil {
			return nil, err
		}
		m.Centroids = append(m.Centroids, c)
		m.Sizes = append(m.Sizes, sz)
		m.GridIndices = append(m.GridIndices, g)
		m.Domains = append(m.Domains, domain)
		m.Visibility = append(m.Visibility, visible)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ListBlockModels returns stored model names, oldest first.
func (s *Store) ListBlockModels() ([]string, error) {
	return s.listNames(`SELECT name FROM block_models ORDER BY model_id`)
}

// ListPointSets returns stored point set names, oldest first.
func (s *Store) ListPointSets() ([]string, error) {
	return s.listNames(`SELECT name FROM point_sets ORDER BY set_id`)
}

func (s *Store) listNames(query string) ([]string, error) {
	rows, err := s.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SavePointSet stores a point set under its name, replacing any previous set
// of the same name.
func (s *Store) SavePointSet(ps *geomodel.PointSet) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM point_sets WHERE name = ?`, ps.Name); err != nil {
		return fmt.Errorf("modelstore: replacing point set %q: %w", ps.Name, err)
	}
	res, err := tx.Exec(`INSERT INTO point_sets (name) VALUES (?)`, ps.Name)
	if err != nil {
		return fmt.Errorf("modelstore: inserting point set %q: %w", ps.Name, err)
	}
	setID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO points (set_id, point_idx, x, y, z, domain, visible)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range ps.Positions {
		visible := true
		if ps.Visibility != nil {
			visible = ps.Visibility[i]
		}
		if _, err := stmt.Exec(setID, i, p[0], p[1], p[2], ps.Domains[i], visible); err != nil {
			return fmt.Errorf("modelstore: inserting point %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadPointSet reads the named point set ordered by point index. Labels pass
// through NewPointSet, so they come back lowercased regardless of how they
// were stored.
func (s *Store) LoadPointSet(name string) (*geomodel.PointSet, error) {
	var setID int64
	err := s.QueryRow(`SELECT set_id FROM point_sets WHERE name = ?`, name).Scan(&setID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("modelstore: no point set named %q", name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.Query(`
		SELECT x, y, z, domain, visible FROM points
		WHERE set_id = ? ORDER BY point_idx`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions [][3]float64
	var domains []string
	var visibility []bool
	for rows.Next() {
		var p [3]float64
		var domain string
		var visible bool
		if err := rows.Scan(&p[0], &p[1], &p[2], &domain, &visible); err != nil {
			return nil, err
		}
		positions = append(positions, p)
		domains = append(domains, domain)
		visibility = append(visibility, visible)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return geomodel.NewPointSet(name, positions, domains, visibility)
}

// UpdateBlockVisibility overwrites the visibility flags of a stored model.
// Used by the mismatch filter to leave only offending blocks visible.
func (s *Store) UpdateBlockVisibility(name string, visible []bool) error {
	var modelID int64
	err := s.QueryRow(`SELECT model_id FROM block_models WHERE name = ?`, name).Scan(&modelID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("modelstore: no block model named %q", name)
	}
	if err != nil {
		return err
	}
	return s.updateVisibility(`UPDATE blocks SET visible = ? WHERE model_id = ? AND block_idx = ?`, modelID, visible)
}

// UpdatePointVisibility overwrites the visibility flags of a stored point set.
func (s *Store) UpdatePointVisibility(name string, visible []bool) error {
	var setID int64
	err := s.QueryRow(`SELECT set_id FROM point_sets WHERE name = ?`, name).Scan(&setID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("modelstore: no point set named %q", name)
	}
	if err != nil {
		return err
	}
	return s.updateVisibility(`UPDATE points SET visible = ? WHERE set_id = ? AND point_idx = ?`, setID, visible)
}

func (s *Store) updateVisibility(query string, ownerID int64, visible []bool) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range visible {
		if _, err := stmt.Exec(v, ownerID, i); err != nil {
			return fmt.Errorf("modelstore: updating visibility of index %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Run is one recorded comparison run.
type Run struct {
	ID           string    `json:"run_id"`
	ModelName    string    `json:"model"`
	PointSet     string    `json:"point_set"`
	TotalPoints  int       `json:"total_points"`
	Matched      int       `json:"matched"`
	Mismatched   int       `json:"mismatched"`
	Outside      int       `json:"outside"`
	Unresolved   int       `json:"unresolved"`
	MatchPercent float64   `json:"match_percent"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewRun builds a Run record from resolver results, with a fresh UUID.
func NewRun(modelName, pointSet string, res *geomodel.Results) Run {
	return Run{
		ID:           uuid.NewString(),
		ModelName:    modelName,
		PointSet:     pointSet,
		TotalPoints:  res.Total(),
		Matched:      res.Matched,
		Mismatched:   res.Mismatched,
		Outside:      res.Outside(),
		Unresolved:   res.Unresolved(),
		MatchPercent: res.MatchPercent(),
	}
}

// RecordRun persists a run plus its anomaly lists.
func (s *Store) RecordRun(run Run, res *geomodel.Results) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO comparison_runs (run_id, model_name, point_set, total_points,
			matched, mismatched, outside, unresolved, match_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ModelName, run.PointSet, run.TotalPoints,
		run.Matched, run.Mismatched, run.Outside, run.Unresolved, run.MatchPercent,
	); err != nil {
		return fmt.Errorf("modelstore: recording run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO run_anomalies (run_id, point_idx, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, idx := range res.OutsideIndices {
		if _, err := stmt.Exec(run.ID, idx, geomodel.OutcomeOutside.String()); err != nil {
			return err
		}
	}
	for _, idx := range res.UnresolvedIndices {
		if _, err := stmt.Exec(run.ID, idx, geomodel.OutcomeUnresolved.String()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns up to limit recorded runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.Query(`
		SELECT run_id, model_name, point_set, total_points, matched, mismatched,
			outside, unresolved, match_percent, created_at
		FROM comparison_runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt any
		if err := rows.Scan(
			&run.ID, &run.ModelName, &run.PointSet, &run.TotalPoints,
			&run.Matched, &run.Mismatched, &run.Outside, &run.Unresolved,
			&run.MatchPercent, &createdAt,
		); err != nil {
			return nil, err
		}
		t, ok := createdAt.(time.Time)
		if !ok {
			return nil, fmt.Errorf("modelstore: run %s: parsing created_at %v: not a timestamp", run.ID, createdAt)
		}
		run.CreatedAt = t.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadRun reads one recorded run by id.
func (s *Store) LoadRun(id string) (*Run, error) {
	run := &Run{}
	var createdAt any
	err := s.QueryRow(`
		SELECT run_id, model_name, point_set, total_points, matched, mismatched,
			outside, unresolved, match_percent, created_at
		FROM comparison_runs WHERE run_id = ?`, id).Scan(
		&run.ID, &run.ModelName, &run.PointSet, &run.TotalPoints,
		&run.Matched, &run.Mismatched, &run.Outside, &run.Unresolved,
		&run.MatchPercent, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("modelstore: no run %q", id)
	}
	if err != nil {
		return nil, err
	}
	// The driver decodes TIMESTAMP-declared columns to time.Time.
	t, ok := createdAt.(time.Time)
	if !ok {
		return nil, fmt.Errorf("modelstore: run %s: parsing created_at %v: not a timestamp", id, createdAt)
	}
	run.CreatedAt = t.UTC()
	return run, nil
}
