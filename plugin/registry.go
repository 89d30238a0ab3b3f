package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches hooks to the ones
// implementing them. Interface discovery happens once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                   []OnInit
	onShutdown               []OnShutdown
	onTourCreated            []OnTourCreated
	onTourModerated          []OnTourModerated
	onBookingCreated         []OnBookingCreated
	onBookingTransitioned    []OnBookingTransitioned
	onCapacityRejected       []OnCapacityRejected
	onNotificationDispatched []OnNotificationDispatched
	onMessageSent            []OnMessageSent
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTourCreated); ok {
		r.onTourCreated = append(r.onTourCreated, v)
	}
	if v, ok := p.(OnTourModerated); ok {
		r.onTourModerated = append(r.onTourModerated, v)
	}
	if v, ok := p.(OnBookingCreated); ok {
		r.onBookingCreated = append(r.onBookingCreated, v)
	}
	if v, ok := p.(OnBookingTransitioned); ok {
		r.onBookingTransitioned = append(r.onBookingTransitioned, v)
	}
	if v, ok := p.(OnCapacityRejected); ok {
		r.onCapacityRejected = append(r.onCapacityRejected, v)
	}
	if v, ok := p.(OnNotificationDispatched); ok {
		r.onNotificationDispatched = append(r.onNotificationDispatched, v)
	}
	if v, ok := p.(OnMessageSent); ok {
		r.onMessageSent = append(r.onMessageSent, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnTourCreated", reflect.TypeOf((*OnTourCreated)(nil)).Elem()},
	{"OnTourModerated", reflect.TypeOf((*OnTourModerated)(nil)).Elem()},
	{"OnBookingCreated", reflect.TypeOf((*OnBookingCreated)(nil)).Elem()},
	{"OnBookingTransitioned", reflect.TypeOf((*OnBookingTransitioned)(nil)).Elem()},
	{"OnCapacityRejected", reflect.TypeOf((*OnCapacityRejected)(nil)).Elem()},
	{"OnNotificationDispatched", reflect.TypeOf((*OnNotificationDispatched)(nil)).Elem()},
	{"OnMessageSent", reflect.TypeOf((*OnMessageSent)(nil)).Elem()},
}

func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// emit runs fn for every hook implementation, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := list(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin hook failed",
				"hook", hook,
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	emit(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitTourCreated emits a tour created event.
func (r *Registry) EmitTourCreated(ctx context.Context, t *tour.Tour) {
	emit(ctx, r, "OnTourCreated", func(r *Registry) []OnTourCreated { return r.onTourCreated },
		func(p OnTourCreated) error { return p.OnTourCreated(ctx, t) })
}

// EmitTourModerated emits a tour moderated event.
func (r *Registry) EmitTourModerated(ctx context.Context, t *tour.Tour, action tour.Action) {
	emit(ctx, r, "OnTourModerated", func(r *Registry) []OnTourModerated { return r.onTourModerated },
		func(p OnTourModerated) error { return p.OnTourModerated(ctx, t, action) })
}

// EmitBookingCreated emits a booking created event.
func (r *Registry) EmitBookingCreated(ctx context.Context, b *booking.Booking) {
	emit(ctx, r, "OnBookingCreated", func(r *Registry) []OnBookingCreated { return r.onBookingCreated },
		func(p OnBookingCreated) error { return p.OnBookingCreated(ctx, b) })
}

// EmitBookingTransitioned emits a booking transitioned event.
func (r *Registry) EmitBookingTransitioned(ctx context.Context, b *booking.Booking, from booking.Status, action booking.Action) {
	emit(ctx, r, "OnBookingTransitioned", func(r *Registry) []OnBookingTransitioned { return r.onBookingTransitioned },
		func(p OnBookingTransitioned) error { return p.OnBookingTransitioned(ctx, b, from, action) })
}

// EmitCapacityRejected emits a capacity rejected event.
func (r *Registry) EmitCapacityRejected(ctx context.Context, tourID id.TourID, date types.Date, requested, booked, capacity int) {
	emit(ctx, r, "OnCapacityRejected", func(r *Registry) []OnCapacityRejected { return r.onCapacityRejected },
		func(p OnCapacityRejected) error {
			return p.OnCapacityRejected(ctx, tourID, date, requested, booked, capacity)
		})
}

// EmitNotificationDispatched emits a notification dispatched event.
func (r *Registry) EmitNotificationDispatched(ctx context.Context, n *notification.Notification) {
	emit(ctx, r, "OnNotificationDispatched", func(r *Registry) []OnNotificationDispatched { return r.onNotificationDispatched },
		func(p OnNotificationDispatched) error { return p.OnNotificationDispatched(ctx, n) })
}

// EmitMessageSent emits a message sent event.
func (r *Registry) EmitMessageSent(ctx context.Context, m *message.Message) {
	emit(ctx, r, "OnMessageSent", func(r *Registry) []OnMessageSent { return r.onMessageSent },
		func(p OnMessageSent) error { return p.OnMessageSent(ctx, m) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the booking pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
