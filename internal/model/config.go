package model

import "time"

// Config is the full runtime configuration. Values merge from flags, env
// (CLAIMSPILOT_*), config file, and these defaults, in that order.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
}

// StoreConfig selects and locates the persistent store
type StoreConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`     // sqlite database file
	Memory bool   `yaml:"memory" mapstructure:"memory"` // in-memory store (dev/test)
}

// EngineConfig carries the operational knobs of the decision engine
type EngineConfig struct {
	AutoApproveCeiling float64 `yaml:"auto_approve_ceiling" mapstructure:"auto_approve_ceiling"`
	RouteRetries       int     `yaml:"route_retries" mapstructure:"route_retries"` // retries after a lost workload race
}

// IngestConfig controls the drop-directory watcher
type IngestConfig struct {
	Dir            string  `yaml:"dir" mapstructure:"dir"`
	ClaimsPerSec   float64 `yaml:"claims_per_sec" mapstructure:"claims_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
	ProcessOnStart bool    `yaml:"process_on_start" mapstructure:"process_on_start"` // sweep existing files at startup
}

// ParseConfig configures the optional LLM field parser used by ingestion
// for raw-text bundles. The decision engine itself never calls it.
type ParseConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"` // "" disables, "openai"
	Model    string        `yaml:"model" mapstructure:"model"`
	APIKey   string        `yaml:"-" mapstructure:"-"` // env only, never persisted
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OutputConfig controls CLI verbosity
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "claimspilot.db",
		},
		Engine: EngineConfig{
			AutoApproveCeiling: 500,
			RouteRetries:       1,
		},
		Ingest: IngestConfig{
			Dir:            "claims",
			ClaimsPerSec:   2,
			Burst:          5,
			ProcessOnStart: true,
		},
		Parse: ParseConfig{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
	}
}
