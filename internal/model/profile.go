package model

import "fmt"

// CameraProfile maps every camera id to its canonical frame size.
type CameraProfile struct {
	sizes map[string]Size
}

// NewCameraProfile creates a profile from a camera -> size map. The map is copied.
func NewCameraProfile(sizes map[string]Size) *CameraProfile {
	copied := make(map[string]Size, len(sizes))
	for camera, size := range sizes {
		copied[camera] = size
	}
	return &CameraProfile{sizes: copied}
}

// Lookup returns the canonical size of a camera.
func (p *CameraProfile) Lookup(camera string) (Size, error) {
	size, ok := p.sizes[camera]
	if !ok {
		return Size{}, fmt.Errorf("camera %q: %w", camera, ErrNoCanonicalSize)
	}
	return size, nil
}

// Cameras returns the number of cameras in the profile.
func (p *CameraProfile) Cameras() int {
	return len(p.sizes)
}
