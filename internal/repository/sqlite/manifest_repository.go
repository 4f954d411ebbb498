package sqlite

import (
	"database/sql"
	"fmt"

	"snapdedup/internal/model"
)

// ManifestRepository implements repository.ManifestRepository for SQLite.
type ManifestRepository struct {
	db *DB
}

// NewManifestRepository creates a new SQLite manifest repository.
func NewManifestRepository(db *DB) *ManifestRepository {
	return &ManifestRepository{db: db}
}

// CreateRun adds a new run record and returns its ID.
func (r *ManifestRepository) CreateRun(run *model.Run) (int64, error) {
	result, err := r.db.conn.Exec(`
		INSERT INTO runs (dataset, output, threshold, min_contour_area, cache_capacity, equalize, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.Dataset, run.Output, run.Threshold, run.MinContourArea, run.CacheCapacity, run.Equalize, run.StartedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return result.LastInsertId()
}

// InsertDecisions adds the decisions of a run in a single transaction, keeping their order.
func (r *ManifestRepository) InsertDecisions(runID int64, decisions []model.Decision) error {
	return r.db.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO decisions (run_id, seq, filename, camera, status, partner, score, fingerprint, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, d := range decisions {
			if _, err := stmt.Exec(runID, i, d.ID, d.Camera, string(d.Status), d.Partner, d.Score, d.Fingerprint, d.Err); err != nil {
				return fmt.Errorf("failed to insert decision %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// LatestRunID returns the ID of the most recent run, or 0 when there is none.
func (r *ManifestRepository) LatestRunID() (int64, error) {
	var id sql.NullInt64
	if err := r.db.conn.QueryRow(`SELECT MAX(id) FROM runs`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	return id.Int64, nil
}

// GetRun retrieves a run by its ID. It returns nil without error when the run does not exist.
func (r *ManifestRepository) GetRun(runID int64) (*model.Run, error) {
	var run model.Run
	err := r.db.conn.QueryRow(`
		SELECT id, dataset, output, threshold, min_contour_area, cache_capacity, equalize, started_at
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Dataset, &run.Output, &run.Threshold, &run.MinContourArea, &run.CacheCapacity, &run.Equalize, &run.StartedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// GetDecisions retrieves the decisions of a run in processing order.
func (r *ManifestRepository) GetDecisions(runID int64) ([]model.Decision, error) {
	rows, err := r.db.conn.Query(`
		SELECT filename, camera, status, partner, score, fingerprint, error
		FROM decisions WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []model.Decision
	for rows.Next() {
		var d model.Decision
		var status string
		if err := rows.Scan(&d.ID, &d.Camera, &status, &d.Partner, &d.Score, &d.Fingerprint, &d.Err); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Status = model.DecisionStatus(status)
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

// GetStats returns decision counts of a run, overall and per camera.
func (r *ManifestRepository) GetStats(runID int64) (*model.RunStats, error) {
	stats := &model.RunStats{
		PerCamera: make(map[string]model.CameraStats),
	}

	rows, err := r.db.conn.Query(`
		SELECT camera, status, COUNT(*)
		FROM decisions
		WHERE run_id = ?
		GROUP BY camera, status
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var camera, status string
		var count int
		if err := rows.Scan(&camera, &status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}

		cam := stats.PerCamera[camera]
		switch model.DecisionStatus(status) {
		case model.StatusAccepted:
			cam.Accepted += count
			stats.Accepted += count
		case model.StatusRejected:
			cam.Rejected += count
			stats.Rejected += count
		case model.StatusSkipped:
			cam.Skipped += count
			stats.Skipped += count
		case model.StatusFailed:
			cam.Failed += count
			stats.Failed += count
		}
		stats.PerCamera[camera] = cam
		stats.Total += count
	}

	return stats, rows.Err()
}
