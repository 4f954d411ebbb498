package app

import (
	"fmt"
	"time"

	"snapdedup/internal/config"
	"snapdedup/internal/logger"
	"snapdedup/internal/model"
	"snapdedup/internal/repository"
	"snapdedup/internal/repository/sqlite"
	"snapdedup/internal/services/dataset"
	"snapdedup/internal/services/dedup"
	"snapdedup/internal/services/export"
	"snapdedup/internal/services/fingerprint"
	"snapdedup/internal/services/resolution"
	"snapdedup/internal/services/vision"
)

// Imaging is what a run needs from the image backend.
type Imaging interface {
	dedup.Imaging
	resolution.Prober
}

type App struct {
	config   *config.Config
	logger   *logger.Logger
	imaging  Imaging
	exporter *export.Exporter
	progress *Progress
}

// NewApp wires a run on the OpenCV backend. The config must already be validated.
func NewApp(cfg *config.Config, log *logger.Logger) *App {
	return NewAppWithImaging(cfg, log, vision.NewService(cfg, log))
}

// NewAppWithImaging wires a run on a custom image backend.
func NewAppWithImaging(cfg *config.Config, log *logger.Logger, imaging Imaging) *App {
	return &App{
		config:   cfg,
		logger:   log,
		imaging:  imaging,
		exporter: export.NewExporter(cfg.OutputDirectory, log),
		progress: NewProgress(nil),
	}
}

// Run performs one deduplication run: vote resolutions, deduplicate, export and,
// when requested, remove the originals.
func (a *App) Run() (*dedup.Result, error) {
	started := time.Now()

	records, err := dataset.List(a.config.DatasetDirectory)
	if err != nil {
		return nil, err
	}

	fmt.Println("Getting cameras resolutions...")
	voter := resolution.NewVoter(a.imaging, a.logger)
	voter.OnProgress(a.progress.Report)
	profile := voter.Vote(records)
	a.progress.Done()

	fmt.Println("Processing...")
	engine := dedup.NewEngine(a.config, profile, a.imaging, a.logger)
	engine.OnProgress(a.progress.Report)
	result, err := engine.Run(records)
	a.progress.Done()
	if err != nil {
		return result, err
	}

	a.logger.Info("Processed %d images from %d cameras: %d accepted, %d rejected, %d skipped, %d failed (%d comparisons, %d cache hits, %d cache misses)",
		len(records), profile.Cameras(), len(result.Accepted), result.Count(model.StatusRejected),
		result.Count(model.StatusSkipped), result.Count(model.StatusFailed),
		result.Comparisons, result.CacheHits, result.CacheMisses)

	fmt.Printf("Saving %d resulting images to %s...\n", len(result.Accepted), a.config.OutputDirectory)
	if _, err := a.exporter.Export(result.Accepted); err != nil {
		return result, err
	}

	if a.config.ManifestPath != "" {
		if err := a.writeManifest(started, result); err != nil {
			return result, err
		}
	}

	if a.config.RemoveOriginals {
		if err := a.exporter.RemoveOriginals(a.config.DatasetDirectory, a.config.ConfirmRemove); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (a *App) writeManifest(started time.Time, result *dedup.Result) error {
	db, err := sqlite.New(a.config.ManifestPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var repo repository.ManifestRepository = sqlite.NewManifestRepository(db)

	a.fingerprint(result)

	runID, err := repo.CreateRun(&model.Run{
		Dataset:        a.config.DatasetDirectory,
		Output:         a.config.OutputDirectory,
		Threshold:      a.config.ThresholdScore,
		MinContourArea: a.config.MinContourArea,
		CacheCapacity:  a.config.CacheCapacity,
		Equalize:       a.config.Equalize,
		StartedAt:      started,
	})
	if err != nil {
		return err
	}
	if err := repo.InsertDecisions(runID, result.Decisions); err != nil {
		return err
	}

	a.logger.Info("Wrote run %d manifest to %s", runID, a.config.ManifestPath)
	return nil
}

// fingerprint records the perceptual hash of every accepted image in its decision.
func (a *App) fingerprint(result *dedup.Result) {
	paths := make(map[string]string, len(result.Accepted))
	for _, record := range result.Accepted {
		paths[record.ID] = record.Path
	}

	for i := range result.Decisions {
		d := &result.Decisions[i]
		if d.Status != model.StatusAccepted {
			continue
		}
		hash, err := fingerprint.Compute(paths[d.ID])
		if err != nil {
			a.logger.Warning("Cannot fingerprint image %s: %v", d.ID, err)
			continue
		}
		d.Fingerprint = hash
	}
}
