package tourdesk_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/cache"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/store/memory"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

var errInboxDown = errors.New("inbox down")

// flakyInbox lets the first allow notification inserts through and fails
// every later one.
type flakyInbox struct {
	store.Store
	allow int
}

func (s *flakyInbox) Tx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.Store.Tx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, &flakyTx{Tx: tx, inbox: s})
	})
}

type flakyTx struct {
	store.Tx
	inbox *flakyInbox
}

func (t *flakyTx) InsertNotification(ctx context.Context, n *notification.Notification) error {
	if t.inbox.allow == 0 {
		return errInboxDown
	}
	t.inbox.allow--
	return t.Tx.InsertNotification(ctx, n)
}

func quietEngine(s store.Store, opts ...tourdesk.Option) *tourdesk.Engine {
	base := []tourdesk.Option{
		tourdesk.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tourdesk.WithClock(func() time.Time { return now }),
	}
	return tourdesk.New(s, append(base, opts...)...)
}

func TestFailedNotificationRollsBackBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 4, types.RUB(100000))

	held, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 1))
	if err != nil {
		t.Fatal(err)
	}

	// The guide's notification goes through, the client's fails.
	broken := quietEngine(&flakyInbox{Store: f.store, allow: 1})
	if _, err := broken.CreateBooking(ctx, f.request(tr.ID, 2)); !errors.Is(err, errInboxDown) {
		t.Fatalf("CreateBooking: got %v, want inbox failure", err)
	}

	list, err := f.eng.ListClientBookings(ctx, f.client, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != held.Booking.ID {
		t.Errorf("bookings after failed create: %d", len(list))
	}
	snap, err := f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Remaining[tourDate]; got != 3 {
		t.Errorf("remaining: got %d, want 3", got)
	}
	if n, _ := f.eng.UnreadCount(ctx, f.guide); n != 1 {
		t.Errorf("guide unread: got %d, want 1", n)
	}

	broken = quietEngine(&flakyInbox{Store: f.store})
	_, err = broken.TransitionBooking(ctx, held.Booking.ID, booking.ActionConfirm, f.guide)
	if !errors.Is(err, errInboxDown) {
		t.Fatalf("TransitionBooking: got %v, want inbox failure", err)
	}

	got, err := f.eng.GetBooking(ctx, held.Booking.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != booking.StatusPending {
		t.Errorf("status after failed confirm: got %s, want pending", got.Status)
	}
	if n, _ := f.eng.UnreadCount(ctx, f.client); n != 1 {
		t.Errorf("client unread: got %d, want 1", n)
	}
}

func TestCapacityCannotDropBelowBookedGuests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 4, types.RUB(100000))

	res, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 4))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.eng.UpdateTourCapacity(ctx, tr.ID, 1); !errors.Is(err, tourdesk.ErrCapacityExceeded) {
		t.Fatalf("shrink below booked: got %v, want ErrCapacityExceeded", err)
	}
	got, err := f.eng.GetTour(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MaxGuests != 4 {
		t.Errorf("max guests changed to %d", got.MaxGuests)
	}
	snap, err := f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Overbooked) != 0 {
		t.Errorf("overbooked: %v", snap.Overbooked)
	}

	if _, err := f.eng.UpdateTourCapacity(ctx, tr.ID, 4); err != nil {
		t.Errorf("capacity equal to booked: %v", err)
	}

	// Past dates and cancelled bookings hold nothing.
	f.store.SeedBooking(&booking.Booking{
		ID:          id.NewBookingID(),
		TourID:      tr.ID,
		ClientID:    f.client,
		GuideID:     f.guide,
		Date:        types.NewDate(2026, time.April, 1),
		GuestsCount: 9,
		Status:      booking.StatusConfirmed,
	})
	if _, err := f.eng.TransitionBooking(ctx, res.Booking.ID, booking.ActionCancel, f.guide); err != nil {
		t.Fatal(err)
	}
	if _, err := f.eng.UpdateTourCapacity(ctx, tr.ID, 1); err != nil {
		t.Errorf("shrink with nothing held: %v", err)
	}
}

func TestConcurrentTourChangesKeepBothFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	price := types.RUB(250000)

	for range 20 {
		tr := f.tour(t, 4, types.RUB(100000))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := f.eng.ModerateTour(ctx, tr.ID, tour.ActionApprove); err != nil {
				t.Errorf("ModerateTour: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := f.eng.UpdateTourPrice(ctx, tr.ID, price); err != nil {
				t.Errorf("UpdateTourPrice: %v", err)
			}
		}()
		wg.Wait()

		got, err := f.eng.GetTour(ctx, tr.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != tour.StatusActive || !got.InstantBooking || !got.Price.Equal(price) {
			t.Fatalf("lost update: status=%s instant=%v price=%s", got.Status, got.InstantBooking, got.Price)
		}
	}
}

func TestIdempotencyKeyBoundToRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 5, types.RUB(100000))

	req := f.request(tr.ID, 2)
	req.IdempotencyKey = uuid.NewString()
	if _, err := f.eng.CreateBooking(ctx, req); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		modify func(*tourdesk.BookingRequest)
	}{
		{"other date", func(r *tourdesk.BookingRequest) { r.Date = tourDate.AddDays(1) }},
		{"other party size", func(r *tourdesk.BookingRequest) { r.GuestsCount = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := req
			tt.modify(&r)
			_, err := f.eng.CreateBooking(ctx, r)
			if !errors.Is(err, tourdesk.ErrAlreadyExists) || !tourdesk.IsConflict(err) {
				t.Errorf("got %v, want ErrAlreadyExists", err)
			}
		})
	}

	list, err := f.eng.ListClientBookings(ctx, f.client, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("bookings: got %d, want 1", len(list))
	}
}

// slowSeats runs during once, right after the first seat read and before
// the caller sees the result.
type slowSeats struct {
	store.Store
	once   sync.Once
	during func()
}

func (s *slowSeats) ListSeats(ctx context.Context, tourID id.TourID, from types.Date) ([]booking.Seat, error) {
	seats, err := s.Store.ListSeats(ctx, tourID, from)
	s.once.Do(s.during)
	return seats, err
}

func TestStaleAvailabilityNotCachedAfterWrite(t *testing.T) {
	ctx := context.Background()
	s := &slowSeats{Store: memory.New()}
	eng := quietEngine(s, tourdesk.WithAvailabilityCache(cache.NewMemory(), time.Hour))

	tr, err := eng.CreateTour(ctx, tourdesk.TourInput{
		GuideID:   id.NewUserID(),
		Title:     "Night market",
		Price:     types.RUB(100000),
		MaxGuests: 5,
	})
	if err != nil {
		t.Fatal(err)
	}

	s.during = func() {
		_, err := eng.CreateBooking(ctx, tourdesk.BookingRequest{
			TourID:      tr.ID,
			ClientID:    id.NewUserID(),
			Date:        tourDate,
			GuestsCount: 3,
			ClientName:  "Oleg",
		})
		if err != nil {
			t.Errorf("CreateBooking: %v", err)
		}
	}

	if _, err := eng.Availability(ctx, tr.ID); err != nil {
		t.Fatal(err)
	}

	snap, err := eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Remaining[tourDate]; got != 2 {
		t.Errorf("remaining: got %d, want 2 (stale snapshot cached)", got)
	}
}
