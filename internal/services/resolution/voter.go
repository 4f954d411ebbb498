package resolution

import (
	"snapdedup/internal/logger"
	"snapdedup/internal/model"
)

// Prober decodes an image and reports its frame size.
type Prober interface {
	Probe(path string) (model.Size, error)
}

// Voter determines the canonical frame size of every camera in a dataset.
type Voter struct {
	prober     Prober
	logger     *logger.Logger
	onProgress func(done, total int)
}

// NewVoter creates a Voter that decodes images with prober.
func NewVoter(prober Prober, logger *logger.Logger) *Voter {
	return &Voter{
		prober: prober,
		logger: logger,
	}
}

// OnProgress registers a callback invoked after each scanned image.
func (v *Voter) OnProgress(fn func(done, total int)) {
	v.onProgress = fn
}

// Vote scans every record and returns, per camera, the most frequently observed size.
// Unreadable images are skipped with a warning. Ties go to the smaller size
// (height first, then width) so the result never depends on scan order.
func (v *Voter) Vote(records []model.ImageRecord) *model.CameraProfile {
	counts := make(map[string]map[model.Size]int)

	for i, record := range records {
		size, err := v.prober.Probe(record.Path)
		if err != nil {
			v.logger.Warning("Cannot read image %s: %v", record.ID, err)
		} else {
			if counts[record.Camera] == nil {
				counts[record.Camera] = make(map[model.Size]int)
			}
			counts[record.Camera][size]++
		}

		if v.onProgress != nil {
			v.onProgress(i+1, len(records))
		}
	}

	sizes := make(map[string]model.Size, len(counts))
	for camera, sizeCounts := range counts {
		sizes[camera] = mostFrequent(sizeCounts)
		v.logger.Info("Camera %s: canonical size %s (%d sizes observed)", camera, sizes[camera], len(sizeCounts))
	}

	return model.NewCameraProfile(sizes)
}

func mostFrequent(sizeCounts map[model.Size]int) model.Size {
	var best model.Size
	bestCount := 0
	for size, count := range sizeCounts {
		if count > bestCount || (count == bestCount && smaller(size, best)) {
			best = size
			bestCount = count
		}
	}
	return best
}

func smaller(a, b model.Size) bool {
	if a.Height != b.Height {
		return a.Height < b.Height
	}
	return a.Width < b.Width
}
