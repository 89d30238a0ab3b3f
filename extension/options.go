package extension

import (
	"time"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/cache"
	"github.com/xraph/tourdesk/plugin"
	"github.com/xraph/tourdesk/store"
)

// Option configures the Tourdesk Forge extension.
type Option func(*Extension)

// WithStore sets the store for the booking engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithCache sets the availability cache.
func WithCache(c cache.Cache) Option {
	return func(e *Extension) {
		e.cache = c
	}
}

// WithEngineOption passes a tourdesk.Option through to the underlying engine.
func WithEngineOption(opt tourdesk.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, tourdesk.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents building the HTTP handler.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for booking routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithDefaultCapacity sets the capacity of tours stored without one.
func WithDefaultCapacity(n int) Option {
	return func(e *Extension) { e.config.DefaultCapacity = n }
}

// WithAvailabilityCacheTTL sets how long cached availability is served.
func WithAvailabilityCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.AvailabilityCacheTTL = d }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
