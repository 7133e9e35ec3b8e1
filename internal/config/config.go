// Package config loads the strata.yaml process configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the top-level strata.yaml structure.
type FileConfig struct {
	Cache       CacheConfig   `yaml:"cache"`
	SchemaPaths []string      `yaml:"schema_paths"`
	Secrets     SecretsConfig `yaml:"secrets"`
	Audit       bool          `yaml:"audit"`
}

// CacheConfig sizes the auto-managed resource tier.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// SecretsConfig points at the age identity and the encrypted secret store.
type SecretsConfig struct {
	KeyFile   string `yaml:"key_file"`
	StoreFile string `yaml:"store_file"`
}

// Default returns the configuration used when no file exists.
func Default() *FileConfig {
	return &FileConfig{
		Cache:       CacheConfig{Capacity: 100},
		SchemaPaths: []string{"."},
		Audit:       true,
	}
}

// LoadFile reads, parses, and validates a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML config data. Omitted fields take their
// defaults.
func Parse(data []byte) (*FileConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidationError holds all validation failures for a config file.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

func validate(cfg *FileConfig) error {
	var errs []string

	if cfg.Cache.Capacity < 0 {
		errs = append(errs, fmt.Sprintf("cache.capacity must not be negative, got %d", cfg.Cache.Capacity))
	}
	for i, p := range cfg.SchemaPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Sprintf("schema_paths[%d]: path is empty", i))
		}
	}
	if (cfg.Secrets.KeyFile == "") != (cfg.Secrets.StoreFile == "") {
		errs = append(errs, "secrets: key_file and store_file must be set together")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
