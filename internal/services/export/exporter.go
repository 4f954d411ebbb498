// Package export copies accepted snapshots to the output directory.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"snapdedup/internal/config"
	"snapdedup/internal/logger"
	"snapdedup/internal/model"
)

var (
	// ErrRemovalNotConfirmed is returned when the confirmation path does not name the dataset.
	ErrRemovalNotConfirmed = errors.New("removal of originals not confirmed")
	// ErrSameFile is returned when a copy would overwrite its own source.
	ErrSameFile = errors.New("source and destination are the same file")
)

// Exporter writes byte-identical copies of accepted originals.
type Exporter struct {
	outputDir string
	logger    *logger.Logger
	exported  bool
}

// NewExporter creates an Exporter writing to outputDir.
func NewExporter(outputDir string, logger *logger.Logger) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		logger:    logger,
	}
}

// Export copies every record into the output directory, creating it if needed.
// It stops at the first failure.
func (e *Exporter) Export(records []model.ImageRecord) (int, error) {
	e.exported = false

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	saved := 0
	for _, record := range records {
		dst := filepath.Join(e.outputDir, record.ID)
		if err := copyFile(record.Path, dst); err != nil {
			e.logger.Error("Error saving image %s: %v", record.ID, err)
			return saved, fmt.Errorf("failed to copy %s: %w", record.ID, err)
		}
		saved++
	}

	e.exported = true
	e.logger.Info("Saved %d images to %s", saved, e.outputDir)
	return saved, nil
}

// RemoveOriginals deletes the dataset directory tree. It only runs after a
// successful Export, when confirm resolves to exactly the dataset path and the
// output directory is outside the dataset.
func (e *Exporter) RemoveOriginals(datasetDir, confirm string) error {
	if !e.exported {
		return errors.New("refusing to remove originals before a successful export")
	}

	dataset, err := filepath.Abs(datasetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	confirmed, err := filepath.Abs(confirm)
	if err != nil {
		return fmt.Errorf("failed to resolve confirmation path: %w", err)
	}
	if confirm == "" || dataset != confirmed {
		return fmt.Errorf("%w: expected %s, got %q", ErrRemovalNotConfirmed, dataset, confirm)
	}

	output, err := filepath.Abs(e.outputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	if config.IsWithin(output, dataset) {
		return fmt.Errorf("refusing to remove %s: output directory %s is inside it", dataset, output)
	}

	if err := os.RemoveAll(dataset); err != nil {
		return fmt.Errorf("failed to remove originals: %w", err)
	}
	e.logger.Info("Removed original dataset %s", dataset)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return err
	}
	// O_TRUNC on the source itself would empty it before the copy starts.
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(srcInfo, dstInfo) {
		return fmt.Errorf("%s: %w", dst, ErrSameFile)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
