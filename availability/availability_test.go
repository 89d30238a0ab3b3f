package availability

import (
	"testing"
	"time"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

var (
	jun30 = types.NewDate(2024, time.June, 30)
	jul1  = types.NewDate(2024, time.July, 1)
	jul2  = types.NewDate(2024, time.July, 2)
	jul3  = types.NewDate(2024, time.July, 3)
)

func seat(d types.Date, n int, s booking.Status) booking.Seat {
	return booking.Seat{Date: d, GuestsCount: n, Status: s}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		seats    []booking.Seat
		from     types.Date
		want     map[types.Date]int
	}{
		{
			name:     "no bookings",
			capacity: 4,
			from:     jul1,
			want:     map[types.Date]int{},
		},
		{
			name:     "pending and confirmed both hold seats",
			capacity: 10,
			seats: []booking.Seat{
				seat(jul1, 3, booking.StatusPending),
				seat(jul1, 2, booking.StatusConfirmed),
				seat(jul2, 1, booking.StatusPending),
			},
			from: jul1,
			want: map[types.Date]int{jul1: 5, jul2: 9},
		},
		{
			name:     "cancelled bookings are released",
			capacity: 4,
			seats: []booking.Seat{
				seat(jul1, 4, booking.StatusCancelled),
				seat(jul2, 2, booking.StatusCancelled),
				seat(jul2, 1, booking.StatusConfirmed),
			},
			from: jul1,
			want: map[types.Date]int{jul2: 3},
		},
		{
			name:     "past dates are ignored",
			capacity: 4,
			seats: []booking.Seat{
				seat(jun30, 4, booking.StatusConfirmed),
				seat(jul1, 1, booking.StatusConfirmed),
			},
			from: jul1,
			want: map[types.Date]int{jul1: 3},
		},
		{
			name:     "oversold floors at zero",
			capacity: 4,
			seats: []booking.Seat{
				seat(jul1, 3, booking.StatusConfirmed),
				seat(jul1, 3, booking.StatusPending),
			},
			from: jul1,
			want: map[types.Date]int{jul1: 0},
		},
		{
			name:     "exactly full",
			capacity: 4,
			seats:    []booking.Seat{seat(jul3, 4, booking.StatusPending)},
			from:     jul1,
			want:     map[types.Date]int{jul3: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.capacity, tt.seats, tt.from)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for d, n := range tt.want {
				if got[d] != n {
					t.Errorf("%s: got %d, want %d", d, got[d], n)
				}
			}
		})
	}
}

// For any capacity M and booked total G on a date, the result is max(0, M-G).
func TestComputeMatchesFormula(t *testing.T) {
	for m := 1; m <= 12; m++ {
		for g := 1; g <= 15; g++ {
			var seats []booking.Seat
			for left := g; left > 0; left -= 2 {
				n := 2
				if left < 2 {
					n = left
				}
				seats = append(seats, seat(jul1, n, booking.StatusPending))
			}

			want := m - g
			if want < 0 {
				want = 0
			}
			if got := Compute(m, seats, jul1)[jul1]; got != want {
				t.Fatalf("M=%d G=%d: got %d, want %d", m, g, got, want)
			}

			snap := Build(id.NewTourID(), m, seats, jul1)
			if snap.Slots(jul2) != m {
				t.Fatalf("M=%d: date without bookings should have %d slots, got %d", m, m, snap.Slots(jul2))
			}
		}
	}
}

func TestComputeIsPure(t *testing.T) {
	seats := []booking.Seat{seat(jul1, 2, booking.StatusPending)}
	a := Compute(5, seats, jul1)
	b := Compute(5, seats, jul1)
	if a[jul1] != b[jul1] || len(seats) != 1 || seats[0].GuestsCount != 2 {
		t.Error("Compute must not mutate input and must be repeatable")
	}
}

func TestBuildSnapshot(t *testing.T) {
	tourID := id.NewTourID()
	seats := []booking.Seat{
		seat(jul1, 6, booking.StatusConfirmed),
		seat(jul2, 1, booking.StatusPending),
	}

	snap := Build(tourID, 4, seats, jul1, jul3, jun30, jul2)

	if snap.TourID != tourID || snap.MaxGuests != 4 {
		t.Errorf("unexpected header %+v", snap)
	}
	want := map[types.Date]int{jul1: 0, jul2: 3, jul3: 4}
	if len(snap.Remaining) != len(want) {
		t.Fatalf("remaining: got %v, want %v", snap.Remaining, want)
	}
	for d, n := range want {
		if snap.Remaining[d] != n {
			t.Errorf("%s: got %d, want %d", d, snap.Remaining[d], n)
		}
	}
	if snap.Overbooked[jul1] != 2 || len(snap.Overbooked) != 1 {
		t.Errorf("overbooked: got %v", snap.Overbooked)
	}
	if snap.Slots(jun30) != 0 {
		t.Error("past dates have no slots")
	}

	dates := snap.Dates()
	if len(dates) != 3 || dates[0] != jul1 || dates[2] != jul3 {
		t.Errorf("dates not sorted: %v", dates)
	}
}

func TestFits(t *testing.T) {
	tests := []struct {
		capacity, booked, requested int
		want                        bool
	}{
		{4, 0, 4, true},
		{4, 4, 1, false},
		{4, 3, 1, true},
		{4, 2, 3, false},
	}
	for _, tt := range tests {
		if got := Fits(tt.capacity, tt.booked, tt.requested); got != tt.want {
			t.Errorf("Fits(%d, %d, %d) = %v, want %v", tt.capacity, tt.booked, tt.requested, got, tt.want)
		}
	}
}

func TestSpan(t *testing.T) {
	got := Span(jun30, jul2, 31)
	if len(got) != 3 || got[0] != jun30 || got[2] != jul2 {
		t.Errorf("got %v", got)
	}
	if Span(jul2, jul1, 31) != nil {
		t.Error("reversed span should be nil")
	}
	if Span(jul1, jul1.AddDays(40), 31) != nil {
		t.Error("span over the limit should be nil")
	}
}
