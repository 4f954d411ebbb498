package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultMinContourArea = 36
	DefaultThresholdScore = 0.1
	DefaultCacheCapacity  = 200
)

type Config struct {
	DatasetDirectory string
	OutputDirectory  string
	BlurRadii        []int   // Gaussian blur kernel sizes applied in order, nil = no blur
	MinContourArea   int     // Contours smaller than this are ignored by the comparison
	ThresholdScore   float64 // Relative score below which two frames are near-duplicates
	CacheCapacity    int     // Maximum number of cached preprocessed frames
	Equalize         bool
	RemoveOriginals  bool
	ConfirmRemove    string // Must name the dataset directory when RemoveOriginals is set
	ManifestPath     string // Optional sqlite run report
	LogDirectory     string // Empty = console only
}

// Load reads the configuration from the environment, after loading an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	blurRadii, err := ParseBlurRadii(getEnv("BLUR_RADIUS_LIST", ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		DatasetDirectory: getEnv("DATASET_DIR", ""),
		OutputDirectory:  getEnv("OUTPUT_DIR", ""),
		BlurRadii:        blurRadii,
		MinContourArea:   getEnvAsInt("MIN_CONTOUR_AREA", DefaultMinContourArea),
		ThresholdScore:   getEnvAsFloat("THRESHOLD_SCORE", DefaultThresholdScore),
		CacheCapacity:    getEnvAsInt("CACHE_CAPACITY", DefaultCacheCapacity),
		Equalize:         getEnvAsBool("EQUALIZE", false),
		RemoveOriginals:  getEnvAsBool("REMOVE_ORIGINALS", false),
		ConfirmRemove:    getEnv("CONFIRM_REMOVE", ""),
		ManifestPath:     getEnv("MANIFEST_PATH", ""),
		LogDirectory:     getEnv("LOG_DIR", ""),
	}, nil
}

// Validate checks option ranges. It must pass before the config is handed to any component.
func (c *Config) Validate() error {
	if c.DatasetDirectory == "" {
		return errors.New("dataset directory is required")
	}
	if c.OutputDirectory == "" {
		return errors.New("output directory is required")
	}
	if c.ThresholdScore < 0 || c.ThresholdScore > 1 {
		return fmt.Errorf("threshold-score must be in the [0, 1] range, got %v", c.ThresholdScore)
	}
	if c.MinContourArea < 0 {
		return fmt.Errorf("min-contour-area must not be negative, got %d", c.MinContourArea)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("cache capacity must not be negative, got %d", c.CacheCapacity)
	}
	for _, r := range c.BlurRadii {
		if r <= 0 || r%2 == 0 {
			return fmt.Errorf("blur radius must be a positive odd number, got %d", r)
		}
	}
	if c.RemoveOriginals && c.ConfirmRemove == "" {
		return errors.New("remove-origs requires --confirm-remove with the dataset path")
	}

	dataset, err := filepath.Abs(c.DatasetDirectory)
	if err != nil {
		return fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	output, err := filepath.Abs(c.OutputDirectory)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	if output == dataset {
		return fmt.Errorf("output directory must differ from the dataset directory %s", dataset)
	}

	if c.RemoveOriginals {
		for name, path := range map[string]string{"output directory": c.OutputDirectory, "manifest": c.ManifestPath, "log directory": c.LogDirectory} {
			if path == "" {
				continue
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("failed to resolve %s path: %w", name, err)
			}
			if IsWithin(abs, dataset) {
				return fmt.Errorf("remove-origs would delete the %s %s inside %s", name, abs, dataset)
			}
		}
	}
	return nil
}

// IsWithin reports whether the absolute path lies in the absolute directory dir,
// or is dir itself.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ParseBlurRadii parses a comma separated list such as "3,5".
func ParseBlurRadii(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	radii := make([]int, 0, len(parts))
	for _, part := range parts {
		r, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid blur radius %q: %w", part, err)
		}
		radii = append(radii, r)
	}
	return radii, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
