// Package dedup keeps one representative per burst of near-identical snapshots
// of each camera.
package dedup

import (
	"errors"
	"fmt"

	"snapdedup/internal/config"
	"snapdedup/internal/logger"
	"snapdedup/internal/model"
	"snapdedup/internal/services/cache"
)

// Frame is a decoded pixel buffer. The holder must Close it.
type Frame interface {
	Size() model.Size
	Close() error
}

// Representation is a preprocessed frame ready for comparison. The holder must Close it.
type Representation interface {
	Pixels() int
	Close() error
}

// Imaging decodes, normalizes, preprocesses and compares frames.
type Imaging interface {
	// Decode reads an image file. It returns an error wrapping model.ErrUnreadable
	// when the file cannot be decoded.
	Decode(path string) (Frame, error)
	// Normalize resizes to target (and equalizes, when enabled). It may return
	// frame itself when nothing changes.
	Normalize(frame Frame, target model.Size) (Frame, error)
	Preprocess(frame Frame) (Representation, error)
	// Compare returns the raw difference score of two representations of equal size.
	Compare(a, b Representation) (float64, error)
}

// Result is the outcome of one run.
type Result struct {
	Accepted    []model.ImageRecord
	Decisions   []model.Decision
	Comparisons int
	CacheHits   int
	CacheMisses int
}

// Count returns the number of decisions with the given status.
func (r *Result) Count(status model.DecisionStatus) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Status == status {
			n++
		}
	}
	return n
}

// Engine runs the deduplication decision loop.
type Engine struct {
	config     *config.Config
	profile    *model.CameraProfile
	imaging    Imaging
	logger     *logger.Logger
	cache      *cache.FIFO[string, Representation]
	onProgress func(done, total int)
}

// NewEngine creates an Engine. The config must already be validated.
func NewEngine(config *config.Config, profile *model.CameraProfile, imaging Imaging, logger *logger.Logger) *Engine {
	engine := &Engine{
		config:  config,
		profile: profile,
		imaging: imaging,
		logger:  logger,
	}
	engine.cache = cache.NewFIFO[string, Representation](config.CacheCapacity, func(id string, repr Representation) {
		if err := repr.Close(); err != nil {
			engine.logger.Warning("Failed to release representation of %s: %v", id, err)
		}
	})
	return engine
}

// OnProgress registers a callback invoked after each processed image.
func (e *Engine) OnProgress(fn func(done, total int)) {
	e.onProgress = fn
}

// Run processes records in order and returns the accepted ones. The first frame
// of every near-duplicate cluster wins; later frames of the same camera whose
// relative score against an accepted frame is below the threshold are rejected.
func (e *Engine) Run(records []model.ImageRecord) (*Result, error) {
	defer e.cache.Purge()

	result := &Result{}
	for i, record := range records {
		decision, err := e.process(record, result)
		if err != nil {
			return result, err
		}
		result.Decisions = append(result.Decisions, decision)

		if e.onProgress != nil {
			e.onProgress(i+1, len(records))
		}
	}
	return result, nil
}

func (e *Engine) process(record model.ImageRecord, result *Result) (model.Decision, error) {
	decision := model.Decision{ID: record.ID, Camera: record.Camera}

	frame, err := e.imaging.Decode(record.Path)
	if err != nil {
		if !errors.Is(err, model.ErrUnreadable) {
			return decision, fmt.Errorf("failed to decode %s: %w", record.ID, err)
		}
		e.logger.Warning("Cannot read image %s", record.ID)
		decision.Status = model.StatusSkipped
		decision.Err = err.Error()
		return decision, nil
	}

	size, err := e.profile.Lookup(record.Camera)
	if err != nil {
		frame.Close()
		e.logger.Error("Cannot process image %s: %v", record.ID, err)
		decision.Status = model.StatusFailed
		decision.Err = err.Error()
		return decision, nil
	}

	repr, err := e.represent(frame, size)
	if err != nil {
		return decision, fmt.Errorf("failed to preprocess %s: %w", record.ID, err)
	}

	for _, partner := range result.Accepted {
		if partner.Camera != record.Camera {
			continue
		}

		score, ok, err := e.compareWith(repr, partner, size, result)
		if err != nil {
			repr.Close()
			return decision, fmt.Errorf("failed to compare %s with %s: %w", record.ID, partner.ID, err)
		}
		if ok && score < e.config.ThresholdScore {
			repr.Close()
			decision.Status = model.StatusRejected
			decision.Partner = partner.ID
			decision.Score = score
			return decision, nil
		}
	}

	result.Accepted = append(result.Accepted, record)
	e.cache.Put(record.ID, repr)
	decision.Status = model.StatusAccepted
	return decision, nil
}

// compareWith returns the relative score of repr against an accepted partner.
// ok is false when the partner had to be recomputed and could not be read.
func (e *Engine) compareWith(repr Representation, partner model.ImageRecord, size model.Size, result *Result) (float64, bool, error) {
	partnerRepr, hit, err := e.cache.GetOrCompute(partner.ID, func() (Representation, error) {
		frame, err := e.imaging.Decode(partner.Path)
		if err != nil {
			return nil, err
		}
		return e.represent(frame, size)
	})
	if err != nil {
		if errors.Is(err, model.ErrUnreadable) {
			e.logger.Warning("Cannot read image %s", partner.ID)
			return 0, false, nil
		}
		return 0, false, err
	}
	if hit {
		result.CacheHits++
	} else {
		result.CacheMisses++
		defer partnerRepr.Close()
	}

	pixels := partnerRepr.Pixels()
	if pixels == 0 {
		return 0, false, fmt.Errorf("representation of %s is empty", partner.ID)
	}

	raw, err := e.imaging.Compare(repr, partnerRepr)
	if err != nil {
		return 0, false, err
	}
	result.Comparisons++

	return raw / float64(pixels), true, nil
}

// represent normalizes and preprocesses frame, releasing every intermediate buffer.
func (e *Engine) represent(frame Frame, size model.Size) (Representation, error) {
	defer frame.Close()

	normalized, err := e.imaging.Normalize(frame, size)
	if err != nil {
		return nil, err
	}
	if normalized != frame {
		defer normalized.Close()
	}

	return e.imaging.Preprocess(normalized)
}
