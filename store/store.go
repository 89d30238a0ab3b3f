// Package store defines the persistence contract of the booking engine.
//
// Reads that need no isolation go straight through Store. Every booking
// creation, transition, message send and tour change runs inside Tx, so
// the capacity read, the row writes and the notification inserts commit or
// roll back together.
package store

import (
	"context"
	"time"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// Store is the unified storage interface for all tourdesk entities.
// Methods are declared explicitly rather than by embedding the per-entity
// interfaces so each backend has a single checklist to satisfy.
type Store interface {
	// Tour methods
	CreateTour(ctx context.Context, t *tour.Tour) error
	GetTour(ctx context.Context, tourID id.TourID) (*tour.Tour, error)
	ListTours(ctx context.Context, opts tour.ListOpts) ([]*tour.Tour, error)

	// Booking methods
	GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error)
	ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error)

	// ListSeats returns the seat projection of every booking of a tour dated
	// on or after from, in any status. Filtering by status is the caller's job.
	ListSeats(ctx context.Context, tourID id.TourID, from types.Date) ([]booking.Seat, error)

	// Notification methods
	ListNotifications(ctx context.Context, userID id.UserID, limit int) ([]*notification.Notification, error)
	UnreadCount(ctx context.Context, userID id.UserID) (int, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
	MarkAllRead(ctx context.Context, userID id.UserID) (int, error)

	// Message methods
	ListMessages(ctx context.Context, bookingID id.BookingID) ([]*message.Message, error)

	// Tx runs fn inside one transaction with at least read-committed
	// isolation. A nil return commits; any error rolls everything back and
	// is returned. Backends may invoke fn more than once on transient
	// conflicts, so fn must not keep side effects outside tx.
	Tx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// LockTour loads a tour and holds an exclusive lock on it until the
	// transaction ends. Concurrent bookings of the same tour serialize here,
	// which also covers dates that have no bookings yet.
	LockTour(ctx context.Context, tourID id.TourID) (*tour.Tour, error)

	// BookedGuests sums guests_count over pending and confirmed bookings of
	// the tour on date.
	BookedGuests(ctx context.Context, tourID id.TourID, date types.Date) (int, error)

	// PeakGuests returns the largest pending plus confirmed guest total over
	// the tour's dates on or after from, or 0 when nothing is booked.
	PeakGuests(ctx context.Context, tourID id.TourID, from types.Date) (int, error)

	// PatchTour writes the fields set in p. The tour must be locked by this
	// transaction.
	PatchTour(ctx context.Context, tourID id.TourID, p tour.Patch) error

	// FindBookingByIdempotencyKey returns the client's booking created with key.
	FindBookingByIdempotencyKey(ctx context.Context, clientID id.UserID, key string) (*booking.Booking, error)

	InsertBooking(ctx context.Context, b *booking.Booking) error

	// GetBookingForUpdate loads a booking and locks it until the transaction ends.
	GetBookingForUpdate(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error)

	// UpdateBookingStatus persists b.Status and b.UpdatedAt.
	UpdateBookingStatus(ctx context.Context, b *booking.Booking) error

	InsertNotification(ctx context.Context, n *notification.Notification) error
	InsertMessage(ctx context.Context, m *message.Message) error
}

// Dispatcher returns a notification.Dispatcher that writes through tx,
// stamping notifications with now. Every dispatched notification is also
// appended to sent so callers can announce them after commit.
func Dispatcher(tx Tx, now time.Time, sent *[]*notification.Notification) notification.Dispatcher {
	return notification.DispatcherFunc(func(ctx context.Context, d notification.Draft) (*notification.Notification, error) {
		n := d.Build(now)
		if err := tx.InsertNotification(ctx, n); err != nil {
			return nil, err
		}
		if sent != nil {
			*sent = append(*sent, n)
		}
		return n, nil
	})
}
