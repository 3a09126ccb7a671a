package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string         `yaml:"level" validate:"oneof=debug info warn error"`
	Format   string         `yaml:"format" validate:"oneof=text json console"`
	Dir      string         `yaml:"dir"`
	Rotation RotationConfig `yaml:"rotation"`
	Console  OutputConfig   `yaml:"console"`
	File     OutputConfig   `yaml:"file"`
}

// RotationConfig holds log rotation settings
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size" validate:"gte=0"`    // MB
	MaxBackups int  `yaml:"max_backups" validate:"gte=0"` // number of files
	MaxAge     int  `yaml:"max_age" validate:"gte=0"`     // days
	Compress   bool `yaml:"compress"`
}

// OutputConfig configures one log destination. Empty level and format
// inherit the top-level values.
type OutputConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=text json console"`
}

// DefaultLoggingConfig logs to the console only. The CLI is short-lived, so
// file output is opt-in.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "console",
		Dir:    "logs",
		Rotation: RotationConfig{
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
		},
		Console: OutputConfig{Enabled: true},
	}
}

// ApplyDefaults fills in missing values with defaults
func (c *LoggingConfig) ApplyDefaults() {
	def := DefaultLoggingConfig()
	if c.Level == "" {
		c.Level = def.Level
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.Dir == "" {
		c.Dir = def.Dir
	}
	if c.Rotation.MaxSize == 0 {
		c.Rotation.MaxSize = def.Rotation.MaxSize
	}
	if c.Rotation.MaxBackups == 0 {
		c.Rotation.MaxBackups = def.Rotation.MaxBackups
	}
	if c.Rotation.MaxAge == 0 {
		c.Rotation.MaxAge = def.Rotation.MaxAge
	}

	for _, out := range []*OutputConfig{&c.Console, &c.File} {
		if out.Level == "" {
			out.Level = c.Level
		}
		if out.Format == "" {
			out.Format = c.Format
		}
	}
}

// ApplyEnvOverrides reads DOCKIT_LOG_LEVEL and DOCKIT_LOG_DIR.
// An overridden level also applies to every output.
func (c *LoggingConfig) ApplyEnvOverrides() {
	if v := strings.ToLower(os.Getenv("DOCKIT_LOG_LEVEL")); v != "" {
		c.Level = v
		c.Console.Level = v
		c.File.Level = v
	}
	if v := os.Getenv("DOCKIT_LOG_DIR"); v != "" {
		c.Dir = v
	}
}

// ResolvePaths places a relative log directory next to the config directory,
// not inside it. Paths starting with ".." are taken relative to configDir.
func (c *LoggingConfig) ResolvePaths(configDir string) {
	if c.Dir == "" || filepath.IsAbs(c.Dir) {
		return
	}
	base := filepath.Dir(configDir)
	if strings.HasPrefix(c.Dir, "..") {
		base = configDir
	}
	c.Dir = filepath.Clean(filepath.Join(base, c.Dir))
}

// Validate validates the configuration
func (c *LoggingConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	if c.File.Enabled && c.Dir == "" {
		return fmt.Errorf("invalid logging config: file output needs a log directory")
	}
	return nil
}
