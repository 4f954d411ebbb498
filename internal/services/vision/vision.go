// Package vision implements frame decoding, normalization and change detection on OpenCV.
package vision

import (
	"fmt"

	"snapdedup/internal/config"
	"snapdedup/internal/logger"
	"snapdedup/internal/model"
	"snapdedup/internal/services/dedup"

	"gocv.io/x/gocv"
)

// Frame wraps a decoded BGR image.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Size returns the frame height and width.
func (f *Frame) Size() model.Size {
	return model.Size{Height: f.mat.Rows(), Width: f.mat.Cols()}
}

// Mat exposes the underlying matrix. It stays owned by the frame.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Close() error {
	return f.mat.Close()
}

// Representation is a preprocessed grayscale frame.
type Representation struct {
	mat gocv.Mat
}

// Pixels returns the number of pixels of the representation.
func (r *Representation) Pixels() int {
	return r.mat.Total()
}

func (r *Representation) Close() error {
	return r.mat.Close()
}

// Service decodes and compares snapshots with the options of one run.
type Service struct {
	equalize       bool
	blurRadii      []int
	minContourArea int
	mask           Mask
	logger         *logger.Logger
}

var _ dedup.Imaging = (*Service)(nil)

// NewService creates a Service configured from a validated config.
func NewService(config *config.Config, logger *logger.Logger) *Service {
	return &Service{
		equalize:       config.Equalize,
		blurRadii:      append([]int(nil), config.BlurRadii...),
		minContourArea: config.MinContourArea,
		mask:           DefaultMask,
		logger:         logger,
	}
}

// Decode reads an image file as a BGR frame.
func (s *Service) Decode(path string) (dedup.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%s: %w", path, model.ErrUnreadable)
	}
	return NewFrame(mat), nil
}

// Probe decodes an image and returns its size.
func (s *Service) Probe(path string) (model.Size, error) {
	frame, err := s.Decode(path)
	if err != nil {
		return model.Size{}, err
	}
	defer frame.Close()
	return frame.Size(), nil
}

func asFrame(frame dedup.Frame) (*Frame, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	return f, nil
}

func asRepresentation(repr dedup.Representation) (*Representation, error) {
	r, ok := repr.(*Representation)
	if !ok {
		return nil, fmt.Errorf("unsupported representation type %T", repr)
	}
	return r, nil
}
