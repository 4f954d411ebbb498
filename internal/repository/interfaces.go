package repository

import (
	"snapdedup/internal/model"
)

// ManifestRepository stores the report of deduplication runs.
type ManifestRepository interface {
	// Create operations
	CreateRun(run *model.Run) (int64, error)
	InsertDecisions(runID int64, decisions []model.Decision) error

	// Read operations
	LatestRunID() (int64, error)
	GetRun(runID int64) (*model.Run, error)
	GetDecisions(runID int64) ([]model.Decision, error)
	GetStats(runID int64) (*model.RunStats, error)
}
