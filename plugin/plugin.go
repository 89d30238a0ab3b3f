// Package plugin provides the lifecycle hook system of the booking engine.
// Hooks run after the owning transaction has committed, so a plugin never
// observes a change that might still roll back.
package plugin

import (
	"context"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Engine lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Tour hooks
// ──────────────────────────────────────────────────

// OnTourCreated is called after a tour is created.
type OnTourCreated interface {
	Plugin
	OnTourCreated(ctx context.Context, t *tour.Tour) error
}

// OnTourModerated is called after a moderator approves or rejects a tour.
type OnTourModerated interface {
	Plugin
	OnTourModerated(ctx context.Context, t *tour.Tour, action tour.Action) error
}

// ──────────────────────────────────────────────────
// Booking hooks
// ──────────────────────────────────────────────────

// OnBookingCreated is called after a booking is committed.
type OnBookingCreated interface {
	Plugin
	OnBookingCreated(ctx context.Context, b *booking.Booking) error
}

// OnBookingTransitioned is called after a confirm or cancel is committed.
type OnBookingTransitioned interface {
	Plugin
	OnBookingTransitioned(ctx context.Context, b *booking.Booking, from booking.Status, action booking.Action) error
}

// OnCapacityRejected is called when a booking request is refused because
// the date is full.
type OnCapacityRejected interface {
	Plugin
	OnCapacityRejected(ctx context.Context, tourID id.TourID, date types.Date, requested, booked, capacity int) error
}

// ──────────────────────────────────────────────────
// Notification and chat hooks
// ──────────────────────────────────────────────────

// OnNotificationDispatched is called for every notification persisted by a
// committed transaction.
type OnNotificationDispatched interface {
	Plugin
	OnNotificationDispatched(ctx context.Context, n *notification.Notification) error
}

// OnMessageSent is called after a chat message is committed.
type OnMessageSent interface {
	Plugin
	OnMessageSent(ctx context.Context, m *message.Message) error
}
