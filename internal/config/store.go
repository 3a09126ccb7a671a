package config

import (
	"os"
	"strings"

	"github.com/syntrixbase/dockit/pkg/docstore/memory"
)

// StoreConfig is the in-memory store section. It adds environment
// overrides to memory.Config.
type StoreConfig struct {
	memory.Config `yaml:",inline"`
}

// ApplyEnvOverrides reads DOCKIT_EVALUATOR, DOCKIT_ORDERING and
// DOCKIT_FIXTURES (comma separated, replacing the configured list).
func (c *StoreConfig) ApplyEnvOverrides() {
	if v := os.Getenv("DOCKIT_EVALUATOR"); v != "" {
		c.Evaluator = strings.ToLower(v)
	}
	if v := os.Getenv("DOCKIT_ORDERING"); v != "" {
		c.Ordering = strings.ToLower(v)
	}
	if v := os.Getenv("DOCKIT_FIXTURES"); v != "" {
		var fixtures []string
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fixtures = append(fixtures, f)
			}
		}
		c.Fixtures = fixtures
	}
}
