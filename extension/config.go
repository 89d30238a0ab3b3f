package extension

import "time"

// Config holds the Tourdesk extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tourdesk" or "tourdesk" keys).
type Config struct {
	// DisableRoutes prevents building the HTTP handler.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for booking routes (default: "/tourdesk").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// DefaultCapacity applies to tours stored without max_guests (default: 8).
	DefaultCapacity int `json:"default_capacity" mapstructure:"default_capacity" yaml:"default_capacity"`

	// AvailabilityCacheTTL bounds how long a cached availability snapshot
	// is served (default: 30s). Only used when a cache is configured.
	AvailabilityCacheTTL time.Duration `json:"availability_cache_ttl" mapstructure:"availability_cache_ttl" yaml:"availability_cache_ttl"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// MaxRangeDays caps availability range queries (default: 92).
	MaxRangeDays int `json:"max_range_days" mapstructure:"max_range_days" yaml:"max_range_days"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:             "/tourdesk",
		DefaultCapacity:      8,
		AvailabilityCacheTTL: 30 * time.Second,
		PluginTimeout:        5 * time.Second,
		MaxRangeDays:         92,
	}
}
