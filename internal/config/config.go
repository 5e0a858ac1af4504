package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for the foodscore service.
type Config struct {
	// Auth
	AuthToken string

	// Open Food Facts API
	OFFBaseURL string

	// Additive taxonomy
	TaxonomyURL          string
	DataDir              string
	TaxonomyPath         string
	TaxonomyMetadataPath string

	// Persistence
	DBPath string

	// HTTP behavior
	HTTPTimeoutSeconds int

	// Server
	Port string
}

// Load reads configuration from environment variables.
func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	timeoutSeconds := 12
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			timeoutSeconds = parsed
		}
	}

	return &Config{
		AuthToken:            getEnv("AUTH_TOKEN", "super-secret-token"),
		OFFBaseURL:           getEnv("OFF_BASE_URL", "https://world.openfoodfacts.org"),
		TaxonomyURL:          getEnv("TAXONOMY_URL", "https://world.openfoodfacts.org/facets/additives.json"),
		DataDir:              dataDir,
		TaxonomyPath:         getEnv("TAXONOMY_PATH", filepath.Join(dataDir, "additives.json")),
		TaxonomyMetadataPath: getEnv("TAXONOMY_METADATA_PATH", filepath.Join(dataDir, "additives-metadata.json")),
		DBPath:               getEnv("DB_PATH", filepath.Join(dataDir, "foodscore.db")),
		HTTPTimeoutSeconds:   timeoutSeconds,
		Port:                 getEnv("PORT", "8080"),
	}
}

// HTTPTimeout returns the outbound HTTP timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
