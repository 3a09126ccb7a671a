package memory

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

const (
	// OrderingEnforce sorts, pages and limits collection reads.
	OrderingEnforce = "enforce"
	// OrderingIgnore applies only filters and limit, in id order.
	OrderingIgnore = "ignore"
)

// Config holds the in-memory store configuration
type Config struct {
	// Evaluator selects the predicate engine: native or cel
	Evaluator string `yaml:"evaluator" validate:"oneof=native cel"`
	// Ordering controls whether orderBy/startAfter are honoured on reads
	Ordering string `yaml:"ordering" validate:"oneof=enforce ignore"`
	// Fixtures are YAML files loaded into the store at startup
	Fixtures []string `yaml:"fixtures" validate:"dive,required"`
}

// DefaultConfig returns default store configuration
func DefaultConfig() Config {
	return Config{
		Evaluator: "native",
		Ordering:  OrderingEnforce,
	}
}

// ApplyDefaults fills in missing values with defaults
func (c *Config) ApplyDefaults() {
	if c.Evaluator == "" {
		c.Evaluator = "native"
	}
	if c.Ordering == "" {
		c.Ordering = OrderingEnforce
	}
}

// ResolvePaths resolves relative fixture paths against baseDir
func (c *Config) ResolvePaths(baseDir string) {
	for i, p := range c.Fixtures {
		if p != "" && !filepath.IsAbs(p) {
			c.Fixtures[i] = filepath.Clean(filepath.Join(baseDir, p))
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}
	return nil
}
