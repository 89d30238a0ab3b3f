package tourdesk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/tourdesk/availability"
	"github.com/xraph/tourdesk/cache"
	"github.com/xraph/tourdesk/plugin"
	"github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/user"
)

// Engine is the booking availability and lifecycle engine.
type Engine struct {
	store     store.Store
	plugins   *plugin.Registry
	logger    *slog.Logger
	directory user.Directory

	cache    cache.Cache
	cacheTTL time.Duration
	fills    fillGuard

	now             func() time.Time
	location        *time.Location
	defaultCapacity int
	maxRangeDays    int
}

// New creates a new Engine on top of s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		cacheTTL:        cache.DefaultTTL,
		now:             time.Now,
		location:        time.UTC,
		defaultCapacity: availability.DefaultCapacity,
		maxRangeDays:    92,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // duplicate names are logged by the registry caller
	}
}

// WithPluginTimeout bounds every plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) { e.plugins.WithTimeout(d) }
}

// WithDirectory makes the engine verify client and guide identities.
func WithDirectory(d user.Directory) Option {
	return func(e *Engine) { e.directory = d }
}

// WithAvailabilityCache caches availability snapshots for ttl.
func WithAvailabilityCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = c
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone "today" is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithDefaultCapacity sets the capacity used for tours stored without one.
func WithDefaultCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultCapacity = n
		}
	}
}

// WithMaxRangeDays limits AvailabilityRange spans.
func WithMaxRangeDays(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRangeDays = n
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("tourdesk started",
		"plugins", e.plugins.Count(),
		"default_capacity", e.defaultCapacity,
		"cache", e.cache != nil,
		"cache_ttl", e.cacheTTL,
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (e *Engine) Stop(ctx context.Context) error {
	e.plugins.EmitShutdown(ctx)
	e.logger.Info("tourdesk stopped")
	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Ping checks store connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}
