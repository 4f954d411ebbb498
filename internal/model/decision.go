package model

import "time"

// DecisionStatus is the outcome of processing one snapshot.
type DecisionStatus string

const (
	StatusAccepted DecisionStatus = "accepted"
	StatusRejected DecisionStatus = "rejected"
	StatusSkipped  DecisionStatus = "skipped" // unreadable
	StatusFailed   DecisionStatus = "failed"  // no canonical size
)

// Decision records what the engine did with a snapshot.
type Decision struct {
	ID          string         `json:"id"`
	Camera      string         `json:"camera"`
	Status      DecisionStatus `json:"status"`
	Partner     string         `json:"partner,omitempty"` // accepted frame that caused a rejection
	Score       float64        `json:"score"`             // relative score against Partner
	Fingerprint string         `json:"fingerprint,omitempty"`
	Err         string         `json:"error,omitempty"`
}

// Run describes one deduplication run stored in the manifest.
type Run struct {
	ID             int64     `json:"id"`
	Dataset        string    `json:"dataset"`
	Output         string    `json:"output"`
	Threshold      float64   `json:"threshold"`
	MinContourArea int       `json:"min_contour_area"`
	CacheCapacity  int       `json:"cache_capacity"`
	Equalize       bool      `json:"equalize"`
	StartedAt      time.Time `json:"started_at"`
}

// CameraStats counts decisions for a single camera.
type CameraStats struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RunStats contains statistics about a stored run.
type RunStats struct {
	Total     int                    `json:"total"`
	Accepted  int                    `json:"accepted"`
	Rejected  int                    `json:"rejected"`
	Skipped   int                    `json:"skipped"`
	Failed    int                    `json:"failed"`
	PerCamera map[string]CameraStats `json:"per_camera"`
}
