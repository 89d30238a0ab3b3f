// Package availability computes remaining per-date capacity of a tour from
// the bookings that hold seats on it. Everything here is pure: no I/O, no
// clocks, so callers pass "today" in explicitly.
package availability

import (
	"sort"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

// DefaultCapacity applies to tours stored without max_guests.
const DefaultCapacity = 8

// Booked sums guests per date over seat-holding bookings dated on or after from.
func Booked(seats []booking.Seat, from types.Date) map[types.Date]int {
	out := make(map[types.Date]int)
	for _, s := range seats {
		if !s.Status.Holds() || s.Date.Before(from) {
			continue
		}
		out[s.Date] += s.GuestsCount
	}
	return out
}

// Compute returns remaining slots for every date on or after from that has at
// least one seat-holding booking. A date absent from the result is fully
// available. Values never go below zero.
func Compute(capacity int, seats []booking.Seat, from types.Date) map[types.Date]int {
	booked := Booked(seats, from)
	out := make(map[types.Date]int, len(booked))
	for d, n := range booked {
		out[d] = Remaining(capacity, n)
	}
	return out
}

// Remaining is max(0, capacity-booked).
func Remaining(capacity, booked int) int {
	if booked >= capacity {
		return 0
	}
	return capacity - booked
}

// Fits reports whether requested more guests can join booked ones.
func Fits(capacity, booked, requested int) bool {
	return booked+requested <= capacity
}

// Snapshot is the derived availability of one tour.
type Snapshot struct {
	TourID    id.TourID          `json:"tour_id"`
	MaxGuests int                `json:"max_guests"`
	From      types.Date         `json:"-"`
	Remaining map[types.Date]int `json:"availability"`

	// Overbooked lists dates whose booked guests exceed capacity, with the
	// excess. Remaining hides these behind a zero.
	Overbooked map[types.Date]int `json:"overbooked,omitempty"`
}

// Build computes a Snapshot. Each explicitly requested date on or after from
// is present in Remaining, at full capacity when nothing is booked.
func Build(tourID id.TourID, capacity int, seats []booking.Seat, from types.Date, explicit ...types.Date) Snapshot {
	booked := Booked(seats, from)
	snap := Snapshot{
		TourID:    tourID,
		MaxGuests: capacity,
		From:      from,
		Remaining: make(map[types.Date]int, len(booked)+len(explicit)),
	}
	for d, n := range booked {
		snap.Remaining[d] = Remaining(capacity, n)
		if n > capacity {
			if snap.Overbooked == nil {
				snap.Overbooked = make(map[types.Date]int)
			}
			snap.Overbooked[d] = n - capacity
		}
	}
	for _, d := range explicit {
		if d.Before(from) {
			continue
		}
		if _, ok := snap.Remaining[d]; !ok {
			snap.Remaining[d] = capacity
		}
	}
	return snap
}

// Slots returns remaining slots on d. Dates before the snapshot's start have none.
func (s Snapshot) Slots(d types.Date) int {
	if d.Before(s.From) {
		return 0
	}
	if n, ok := s.Remaining[d]; ok {
		return n
	}
	return s.MaxGuests
}

// Dates returns the dates present in Remaining in ascending order.
func (s Snapshot) Dates() []types.Date {
	out := make([]types.Date, 0, len(s.Remaining))
	for d := range s.Remaining {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Span returns every date from from through to inclusive. It returns nil when
// to is before from or the span exceeds maxDays.
func Span(from, to types.Date, maxDays int) []types.Date {
	if to.Before(from) {
		return nil
	}
	var out []types.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if len(out) == maxDays {
			return nil
		}
		out = append(out, d)
	}
	return out
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Remaining = make(map[types.Date]int, len(s.Remaining))
	for d, n := range s.Remaining {
		out.Remaining[d] = n
	}
	if s.Overbooked != nil {
		out.Overbooked = make(map[types.Date]int, len(s.Overbooked))
		for d, n := range s.Overbooked {
			out.Overbooked[d] = n
		}
	}
	return out
}

// Including returns a copy of s where each date in dates on or after From
// is present in Remaining, at full capacity when not already there.
func (s Snapshot) Including(dates ...types.Date) Snapshot {
	out := s.Clone()
	for _, d := range dates {
		if d.Before(s.From) {
			continue
		}
		if _, ok := out.Remaining[d]; !ok {
			out.Remaining[d] = s.MaxGuests
		}
	}
	return out
}
