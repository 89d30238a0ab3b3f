// Package tour defines the bookable tour offering and its moderation lifecycle.
package tour

import (
	"fmt"
	"time"

	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

// Status is the moderation state of a tour.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
)

// DefaultMaxGuests is the capacity assigned to a new tour created without one.
const DefaultMaxGuests = 10

type Tour struct {
	types.Entity
	ID             id.TourID   `json:"id"`
	GuideID        id.UserID   `json:"guide_id"`
	Title          string      `json:"title"`
	City           string      `json:"city,omitempty"`
	Price          types.Money `json:"price"`
	MaxGuests      int         `json:"max_guests"`
	Status         Status      `json:"status"`
	InstantBooking bool        `json:"instant_booking"`
}

// Capacity returns MaxGuests, or fallback when the tour was stored without one.
func (t *Tour) Capacity(fallback int) int {
	if t.MaxGuests > 0 {
		return t.MaxGuests
	}
	return fallback
}

// Action is a moderator decision on a tour.
type Action int

const (
	ActionApprove Action = iota + 1
	ActionReject
)

// ParseAction maps the wire form ("approve", "reject") to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "approve":
		return ActionApprove, nil
	case "reject":
		return ActionReject, nil
	default:
		return 0, fmt.Errorf("tour: unknown moderation action %q", s)
	}
}

func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Moderate applies a moderation decision. Approval activates the tour and
// turns on instant booking; rejection turns it off.
func (t *Tour) Moderate(a Action) error {
	switch a {
	case ActionApprove:
		t.Status = StatusActive
		t.InstantBooking = true
	case ActionReject:
		t.Status = StatusRejected
		t.InstantBooking = false
	default:
		return fmt.Errorf("tour: unknown moderation action %d", int(a))
	}
	return nil
}

// Patch lists the fields one tour update writes. Nil fields keep their stored
// value, so a price change and a moderation decision never overwrite each
// other.
type Patch struct {
	Status         *Status
	InstantBooking *bool
	Price          *types.Money
	MaxGuests      *int
	UpdatedAt      time.Time
}

// Apply copies the set fields onto t.
func (p Patch) Apply(t *Tour) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.InstantBooking != nil {
		t.InstantBooking = *p.InstantBooking
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.MaxGuests != nil {
		t.MaxGuests = *p.MaxGuests
	}
	if !p.UpdatedAt.IsZero() {
		t.UpdatedAt = p.UpdatedAt
	}
}
