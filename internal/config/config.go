// Package config loads run settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const maxPipelineWorkers = 64

// Config holds all run settings, populated from environment variables.
type Config struct {
	CatalogAPIURL  string
	CatalogTimeout time.Duration

	// OpenCage geocoding configuration. Enrichment is active only when a
	// key is present (or GEOCODING_ENABLED forces it).
	OpenCageAPIKey    string
	GeocodingEnabled  bool
	OpenCageTimeout   time.Duration
	OpenCageCacheSize int

	PipelineWorkers int
	EnrichRetries   int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	catalogTimeout, err := parseDuration("CATALOG_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	openCageTimeout, err := parseDuration("OPENCAGE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseBoundedInt("OPENCAGE_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}

	workers, err := parseBoundedInt("PIPELINE_WORKERS", 1, 1, maxPipelineWorkers)
	if err != nil {
		return nil, err
	}

	retries, err := parseBoundedInt("ENRICH_RETRIES", 2, 0, 10)
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv("OPENCAGE_API_KEY")
	geocodingEnabled := apiKey != ""
	if v := os.Getenv("GEOCODING_ENABLED"); v != "" {
		geocodingEnabled = v == "true"
	}

	cfg := &Config{
		CatalogAPIURL:  os.Getenv("CATALOG_API_URL"),
		CatalogTimeout: catalogTimeout,

		OpenCageAPIKey:    apiKey,
		GeocodingEnabled:  geocodingEnabled,
		OpenCageTimeout:   openCageTimeout,
		OpenCageCacheSize: cacheSize,

		PipelineWorkers: workers,
		EnrichRetries:   retries,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.CatalogAPIURL == "" {
		return nil, errors.New("CATALOG_API_URL is required")
	}
	if cfg.GeocodingEnabled && cfg.OpenCageAPIKey == "" {
		return nil, errors.New("GEOCODING_ENABLED is true but OPENCAGE_API_KEY is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBoundedInt(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}
