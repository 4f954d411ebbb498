package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"snapdedup/internal/model"
	"snapdedup/internal/repository"
	"snapdedup/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/manifest.db", "Manifest database path")
	runID := flag.Int64("run", 0, "Run to show, 0 = latest")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Failed to open manifest: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewManifestRepository(db)

	run, err := loadRun(repo, *runID)
	if err != nil {
		log.Fatalf("%v", err)
	}
	id := run.ID

	stats, err := repo.GetStats(id)
	if err != nil {
		log.Fatalf("Failed to load stats for run %d: %v", id, err)
	}

	fmt.Printf("Run %d started %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  %s -> %s (threshold %v, min contour area %d, cache %d, equalize %v)\n",
		run.Dataset, run.Output, run.Threshold, run.MinContourArea, run.CacheCapacity, run.Equalize)
	fmt.Printf("  %d images: %d accepted, %d rejected, %d skipped, %d failed\n",
		stats.Total, stats.Accepted, stats.Rejected, stats.Skipped, stats.Failed)

	cameras := make([]string, 0, len(stats.PerCamera))
	for camera := range stats.PerCamera {
		cameras = append(cameras, camera)
	}
	sort.Strings(cameras)
	for _, camera := range cameras {
		s := stats.PerCamera[camera]
		fmt.Printf("  %s: %d accepted, %d rejected, %d skipped, %d failed\n",
			camera, s.Accepted, s.Rejected, s.Skipped, s.Failed)
	}
}

// loadRun returns the run with the given id, or the latest run when id is 0.
func loadRun(repo repository.ManifestRepository, id int64) (*model.Run, error) {
	if id == 0 {
		latest, err := repo.LatestRunID()
		if err != nil {
			return nil, fmt.Errorf("failed to find latest run: %w", err)
		}
		if latest == 0 {
			return nil, errors.New("manifest contains no runs")
		}
		id = latest
	}

	run, err := repo.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found", id)
	}
	return run, nil
}
