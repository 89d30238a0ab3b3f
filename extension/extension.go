// Package extension provides the Forge extension adapter for Tourdesk.
//
// It implements the forge.Extension interface to integrate the booking
// engine into a Forge application with DI registration and lifecycle
// management. The engine and, unless disabled, the HTTP handler are
// provided through the container.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tourdesk" or "tourdesk" keys.
package extension

import (
	"context"
	"errors"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/api"
	"github.com/xraph/tourdesk/cache"
	"github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tourdesk"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Tour booking availability and lifecycle engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Tourdesk as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tourdesk.Engine
	handler    http.Handler
	store      store.Store
	cache      cache.Cache
	engineOpts []tourdesk.Option
}

// New creates a new Tourdesk Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying booking engine.
// This is nil until Register is called.
func (e *Extension) Engine() *tourdesk.Engine { return e.engine }

// Handler returns the HTTP handler serving the booking API under BasePath.
// It is nil until Register is called, and stays nil with DisableRoutes.
func (e *Extension) Handler() http.Handler { return e.handler }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = tourdesk.New(e.store, e.buildEngineOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*tourdesk.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}
	e.handler = api.NewServer(e.engine, api.WithBasePath(e.config.BasePath))
	return vessel.Provide(fapp.Container(), func() (http.Handler, error) {
		return e.handler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tourdesk: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(ctx); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tourdesk: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs tourdesk.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []tourdesk.Option {
	opts := make([]tourdesk.Option, 0, len(e.engineOpts)+4)

	opts = append(opts,
		tourdesk.WithDefaultCapacity(e.config.DefaultCapacity),
		tourdesk.WithMaxRangeDays(e.config.MaxRangeDays),
		tourdesk.WithPluginTimeout(e.config.PluginTimeout),
	)
	if e.cache != nil {
		opts = append(opts, tourdesk.WithAvailabilityCache(e.cache, e.config.AvailabilityCacheTTL))
	}

	// Pass-through options come last so they win.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tourdesk: configuration is required but not found in config files; " +
				"ensure 'extensions.tourdesk' or 'tourdesk' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tourdesk: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("default_capacity", e.config.DefaultCapacity),
		forge.F("availability_cache_ttl", e.config.AvailabilityCacheTTL),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.tourdesk", "tourdesk"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("tourdesk: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("tourdesk: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.DefaultCapacity == 0 {
		cfg.DefaultCapacity = defaults.DefaultCapacity
	}
	if cfg.AvailabilityCacheTTL == 0 {
		cfg.AvailabilityCacheTTL = defaults.AvailabilityCacheTTL
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.MaxRangeDays == 0 {
		cfg.MaxRangeDays = defaults.MaxRangeDays
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and bool
// flags override when true.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.DefaultCapacity == 0 {
		yamlConfig.DefaultCapacity = programmaticConfig.DefaultCapacity
	}
	if yamlConfig.AvailabilityCacheTTL == 0 {
		yamlConfig.AvailabilityCacheTTL = programmaticConfig.AvailabilityCacheTTL
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.MaxRangeDays == 0 {
		yamlConfig.MaxRangeDays = programmaticConfig.MaxRangeDays
	}

	return e.mergeWithDefaults(yamlConfig)
}
