package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"snapdedup/internal/app"
	"snapdedup/internal/config"
	"snapdedup/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	blurRadii := flag.String("blur-radius-list", joinInts(cfg.BlurRadii), "Comma separated Gaussian blur kernel sizes, e.g. \"3,5\"")
	flag.IntVar(&cfg.MinContourArea, "min-contour-area", cfg.MinContourArea, "Contours smaller than this area are ignored")
	flag.Float64Var(&cfg.ThresholdScore, "threshold-score", cfg.ThresholdScore, "Relative score in [0, 1] below which a frame is a near-duplicate")
	flag.IntVar(&cfg.CacheCapacity, "calc-features-map-size", cfg.CacheCapacity, "Number of preprocessed frames kept in memory")
	flag.IntVar(&cfg.CacheCapacity, "cache-capacity", cfg.CacheCapacity, "Alias of -calc-features-map-size")
	flag.BoolVar(&cfg.Equalize, "equalize", cfg.Equalize, "Equalize the luma histogram before comparing")
	flag.BoolVar(&cfg.Equalize, "e", cfg.Equalize, "Alias of -equalize")
	flag.BoolVar(&cfg.RemoveOriginals, "remove-origs", cfg.RemoveOriginals, "Remove the dataset directory after a successful export")
	flag.StringVar(&cfg.ConfirmRemove, "confirm-remove", cfg.ConfirmRemove, "Dataset path, required with -remove-origs")
	flag.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "Write a sqlite run report to this path")
	flag.StringVar(&cfg.LogDirectory, "log-dir", cfg.LogDirectory, "Also append logs to files in this directory")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] dataset out_folder\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	switch args := flag.Args(); len(args) {
	case 0:
	case 2:
		cfg.DatasetDirectory, cfg.OutputDirectory = args[0], args[1]
	default:
		flag.Usage()
		os.Exit(2)
	}

	if cfg.BlurRadii, err = config.ParseBlurRadii(*blurRadii); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Close()

	if _, err := app.NewApp(cfg, appLogger).Run(); err != nil {
		appLogger.Error("Run failed: %v", err)
		appLogger.Close()
		os.Exit(1)
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
