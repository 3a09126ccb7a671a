package config

// ServiceConfig is the configuration lifecycle every config section follows.
type ServiceConfig interface {
	// ApplyDefaults fills zero values with defaults
	ApplyDefaults()

	// ApplyEnvOverrides applies DOCKIT_* environment variables
	ApplyEnvOverrides()

	// ResolvePaths resolves relative paths against the config directory
	ResolvePaths(configDir string)

	Validate() error
}

// ApplyServiceConfigs runs ApplyDefaults, ApplyEnvOverrides, ResolvePaths and
// Validate on each config in turn, stopping at the first validation error.
func ApplyServiceConfigs(configDir string, configs ...ServiceConfig) error {
	for _, cfg := range configs {
		cfg.ApplyDefaults()
		cfg.ApplyEnvOverrides()
		cfg.ResolvePaths(configDir)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}
