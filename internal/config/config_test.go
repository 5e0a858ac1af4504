package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected *Config
	}{
		{
			name:    "default values",
			envVars: map[string]string{},
			expected: &Config{
				AuthToken:            "super-secret-token",
				OFFBaseURL:           "https://world.openfoodfacts.org",
				TaxonomyURL:          "https://world.openfoodfacts.org/facets/additives.json",
				DataDir:              "./data",
				TaxonomyPath:         "data/additives.json",
				TaxonomyMetadataPath: "data/additives-metadata.json",
				DBPath:               "data/foodscore.db",
				HTTPTimeoutSeconds:   12,
				Port:                 "8080",
			},
		},
		{
			name: "custom values",
			envVars: map[string]string{
				"AUTH_TOKEN":           "custom-token",
				"OFF_BASE_URL":         "https://off.example.test",
				"DATA_DIR":             "/custom/data",
				"HTTP_TIMEOUT_SECONDS": "30",
				"PORT":                 "3000",
			},
			expected: &Config{
				AuthToken:            "custom-token",
				OFFBaseURL:           "https://off.example.test",
				TaxonomyURL:          "https://world.openfoodfacts.org/facets/additives.json",
				DataDir:              "/custom/data",
				TaxonomyPath:         "/custom/data/additives.json",
				TaxonomyMetadataPath: "/custom/data/additives-metadata.json",
				DBPath:               "/custom/data/foodscore.db",
				HTTPTimeoutSeconds:   30,
				Port:                 "3000",
			},
		},
		{
			name: "explicit paths win over data dir",
			envVars: map[string]string{
				"DATA_DIR":      "/custom/data",
				"TAXONOMY_PATH": "/elsewhere/additives.json",
				"DB_PATH":       "/elsewhere/scan.db",
			},
			expected: &Config{
				AuthToken:            "super-secret-token",
				OFFBaseURL:           "https://world.openfoodfacts.org",
				TaxonomyURL:          "https://world.openfoodfacts.org/facets/additives.json",
				DataDir:              "/custom/data",
				TaxonomyPath:         "/elsewhere/additives.json",
				TaxonomyMetadataPath: "/custom/data/additives-metadata.json",
				DBPath:               "/elsewhere/scan.db",
				HTTPTimeoutSeconds:   12,
				Port:                 "8080",
			},
		},
		{
			name: "invalid timeout falls back to default",
			envVars: map[string]string{
				"HTTP_TIMEOUT_SECONDS": "soon",
			},
			expected: &Config{
				AuthToken:            "super-secret-token",
				OFFBaseURL:           "https://world.openfoodfacts.org",
				TaxonomyURL:          "https://world.openfoodfacts.org/facets/additives.json",
				DataDir:              "./data",
				TaxonomyPath:         "data/additives.json",
				TaxonomyMetadataPath: "data/additives-metadata.json",
				DBPath:               "data/foodscore.db",
				HTTPTimeoutSeconds:   12,
				Port:                 "8080",
			},
		},
	}

	envKeys := []string{
		"AUTH_TOKEN", "OFF_BASE_URL", "TAXONOMY_URL", "DATA_DIR",
		"TAXONOMY_PATH", "TAXONOMY_METADATA_PATH", "DB_PATH",
		"HTTP_TIMEOUT_SECONDS", "PORT",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envKeys {
				t.Setenv(key, tt.envVars[key])
			}

			assert.Equal(t, tt.expected, Load())
		})
	}
}

func TestHTTPTimeout(t *testing.T) {
	cfg := &Config{HTTPTimeoutSeconds: 7}
	assert.Equal(t, 7*time.Second, cfg.HTTPTimeout())
}
