package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/syntrixbase/dockit/pkg/docstore/memory"
	"gopkg.in/yaml.v3"
)

// Config holds the dockit configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Store   StoreConfig   `yaml:"store"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Logging: DefaultLoggingConfig()}
	cfg.Store.Config = memory.DefaultConfig()
	return cfg
}

// Load reads configDir/config.yml then configDir/config.local.yml over the
// defaults and runs the config lifecycle. Missing files are skipped.
func Load(configDir string) (*Config, error) {
	cfg := Default()
	for _, name := range []string{"config.yml", "config.local.yml"} {
		if err := loadFile(filepath.Join(configDir, name), cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyServiceConfigs(configDir, &cfg.Logging, &cfg.Store); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	slog.Debug("Loaded config file", "file", filename)
	return nil
}
