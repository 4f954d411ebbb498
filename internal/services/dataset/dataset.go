// Package dataset lists the snapshots of a dataset directory in a stable order.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"snapdedup/internal/model"
)

// List returns one record per regular file in dir, sorted by filename so that
// acceptance decisions do not depend on the platform's directory order.
func List(dir string) ([]model.ImageRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	records := make([]model.ImageRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		records = append(records, model.ImageRecord{
			ID:     entry.Name(),
			Camera: model.CameraID(entry.Name()),
			Path:   filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
