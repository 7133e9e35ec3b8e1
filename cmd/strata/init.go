package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glyphworks/strata/internal/secrets"
)

func cmdInit() error {
	cfg := loadConfig()

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Generate the age key up front so secret put works immediately.
	keyFile := defaultDataPath("strata.age")
	if _, err := secrets.EnsureKeyFile(keyFile); err != nil {
		return fmt.Errorf("create age key: %w", err)
	}
	fmt.Printf("Age key: %s\n", keyFile)

	// Create default config if not exists
	if _, err := os.Stat(cfg.ConfigFile); os.IsNotExist(err) {
		defaultCfg := `# Strata Configuration
# Schema files (<alias>.yaml) are looked up in schema_paths, in order.
# Reference stored credentials from a schema DSN with ${secret}.

cache:
  capacity: 100
schema_paths:
  - .
audit: true
`
		if err := os.MkdirAll(filepath.Dir(cfg.ConfigFile), 0700); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(cfg.ConfigFile, []byte(defaultCfg), 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Config file created: %s\n", cfg.ConfigFile)
	} else {
		fmt.Printf("Config file already exists: %s\n", cfg.ConfigFile)
	}

	return nil
}
