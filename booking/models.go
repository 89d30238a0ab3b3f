// Package booking defines a client's reservation against a tour and the
// closed state machine that governs its status.
package booking

import (
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Holds reports whether a booking in this status consumes capacity.
func (s Status) Holds() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == StatusCancelled }

// Booking is never deleted; cancellation is a status. TotalPrice is computed
// once at creation and never recomputed from the tour.
type Booking struct {
	types.Entity
	ID             id.BookingID `json:"id"`
	TourID         id.TourID    `json:"tour_id"`
	ClientID       id.UserID    `json:"client_id"`
	GuideID        id.UserID    `json:"guide_id"`
	Date           types.Date   `json:"booking_date"`
	GuestsCount    int          `json:"guests_count"`
	TotalPrice     types.Money  `json:"total_price"`
	Status         Status       `json:"status"`
	ClientName     string       `json:"client_name"`
	ClientContact  string       `json:"client_telegram,omitempty"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
}

// Seat is the capacity-relevant projection of a booking.
type Seat struct {
	Date        types.Date
	GuestsCount int
	Status      Status
}

// Seat projects b for availability computation.
func (b *Booking) Seat() Seat {
	return Seat{Date: b.Date, GuestsCount: b.GuestsCount, Status: b.Status}
}
