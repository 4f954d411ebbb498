package model

import (
	"errors"
	"fmt"
)

// CameraIDLength is the number of leading filename characters that identify a camera.
const CameraIDLength = 3

var (
	// ErrUnreadable is returned when an image file cannot be decoded.
	ErrUnreadable = errors.New("image cannot be read")
	// ErrNoCanonicalSize is returned when a camera has no voted frame size.
	ErrNoCanonicalSize = errors.New("camera has no canonical size")
)

// Size is a frame size in pixels.
type Size struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Pixels returns the number of pixels in a frame of this size.
func (s Size) Pixels() int {
	return s.Height * s.Width
}

// ImageRecord identifies one snapshot of the dataset.
type ImageRecord struct {
	ID     string `json:"id"`
	Camera string `json:"camera"`
	Path   string `json:"path"`
}

// CameraID derives the camera id from a snapshot filename.
func CameraID(filename string) string {
	if len(filename) < CameraIDLength {
		return filename
	}
	return filename[:CameraIDLength]
}
