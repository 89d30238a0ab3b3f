package booking

import (
	"context"

	"github.com/xraph/tourdesk/id"
)

// Store is the read side for bookings. Writes go through store.Tx so the
// capacity check and the insert share one transaction.
type Store interface {
	GetBooking(ctx context.Context, bookingID id.BookingID) (*Booking, error)
	ListBookings(ctx context.Context, opts ListOpts) ([]*Booking, error)
}

// ListOpts filters a booking listing. Results are ordered by booking date,
// newest first.
type ListOpts struct {
	ClientID id.UserID
	GuideID  id.UserID
	TourID   id.TourID
	Status   Status
	Limit    int
	Offset   int
}
