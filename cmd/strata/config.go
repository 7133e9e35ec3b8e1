package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glyphworks/strata/internal/config"
)

// Config holds process settings loaded from environment variables. The
// strata.yaml file layered on top is handled by internal/config.
type Config struct {
	ConfigFile string     // path to strata.yaml
	DataDir    string     // key and secret store location
	LogLevel   slog.Level // slog level
}

// defaultDataPath returns ~/.strata/<filename>, falling back to a
// CWD-relative path if the home directory can't be resolved.
func defaultDataPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filename
	}
	return filepath.Join(home, ".strata", filename)
}

func loadConfig() *Config {
	return &Config{
		ConfigFile: envOr("STRATA_CONFIG", defaultDataPath("strata.yaml")),
		DataDir:    envOr("STRATA_DATA_DIR", defaultDataPath("")),
		LogLevel:   parseLogLevel(envOr("STRATA_LOG_LEVEL", "info")),
	}
}

// loadFileConfig reads strata.yaml when it exists, defaults otherwise.
func loadFileConfig(cfg *Config) (*config.FileConfig, error) {
	if _, err := os.Stat(cfg.ConfigFile); err != nil {
		return config.Default(), nil
	}
	return config.LoadFile(cfg.ConfigFile)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
