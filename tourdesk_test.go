package tourdesk_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/cache"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/store/memory"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

var (
	now      = time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	tourDate = types.NewDate(2026, time.June, 1)
)

type fixture struct {
	eng    *tourdesk.Engine
	store  *memory.Store
	guide  id.UserID
	client id.UserID
}

func newFixture(t *testing.T, opts ...tourdesk.Option) *fixture {
	t.Helper()

	s := memory.New()
	base := []tourdesk.Option{
		tourdesk.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tourdesk.WithClock(func() time.Time { return now }),
	}
	eng := tourdesk.New(s, append(base, opts...)...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop(context.Background()) })

	return &fixture{
		eng:    eng,
		store:  s,
		guide:  id.NewUserID(),
		client: id.NewUserID(),
	}
}

func (f *fixture) tour(t *testing.T, maxGuests int, price types.Money) *tour.Tour {
	t.Helper()
	tr, err := f.eng.CreateTour(context.Background(), tourdesk.TourInput{
		GuideID:   f.guide,
		Title:     "Old town walk",
		City:      "Kazan",
		Price:     price,
		MaxGuests: maxGuests,
	})
	if err != nil {
		t.Fatalf("CreateTour: %v", err)
	}
	return tr
}

func (f *fixture) request(tourID id.TourID, guests int) tourdesk.BookingRequest {
	return tourdesk.BookingRequest{
		TourID:        tourID,
		ClientID:      f.client,
		Date:          tourDate,
		GuestsCount:   guests,
		ClientName:    "Anna",
		ClientContact: "@anna",
	}
}

func TestCreateBookingWithinCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 4, types.RUB(150000))

	res, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 4))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	b := res.Booking
	if b.Status != booking.StatusPending {
		t.Errorf("status: got %s, want pending", b.Status)
	}
	if want := types.RUB(600000); !b.TotalPrice.Equal(want) {
		t.Errorf("total: got %s, want %s", b.TotalPrice, want)
	}
	if b.GuideID != f.guide {
		t.Errorf("guide: got %s, want %s", b.GuideID, f.guide)
	}

	_, err = f.eng.CreateBooking(ctx, f.request(tr.ID, 1))
	if !errors.Is(err, tourdesk.ErrCapacityExceeded) {
		t.Fatalf("fifth guest: got %v, want ErrCapacityExceeded", err)
	}
	var ce *tourdesk.CapacityError
	if !errors.As(err, &ce) || ce.Booked != 4 || ce.Capacity != 4 || ce.Requested != 1 {
		t.Errorf("capacity error detail: %+v", ce)
	}

	list, err := f.eng.ListClientBookings(ctx, f.client, 0, 0)
	if err != nil {
		t.Fatalf("ListClientBookings: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("rejected booking was stored: %d bookings", len(list))
	}
}

func TestInstantBookingConfirmsImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 6, types.RUB(100000))

	if _, err := f.eng.ModerateTour(ctx, tr.ID, tour.ActionApprove); err != nil {
		t.Fatalf("ModerateTour: %v", err)
	}

	res, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 2))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if res.Booking.Status != booking.StatusConfirmed {
		t.Errorf("status: got %s, want confirmed", res.Booking.Status)
	}

	guideInbox, err := f.eng.ListNotifications(ctx, f.guide, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(guideInbox) != 1 || guideInbox[0].Title != "Booking confirmed" {
		t.Errorf("guide notifications: %+v", guideInbox)
	}
	if !strings.Contains(guideInbox[0].Message, "Anna") || !strings.Contains(guideInbox[0].Message, "2026-06-01") {
		t.Errorf("guide message: %q", guideInbox[0].Message)
	}
}

func TestCancellationFreesSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 4, types.RUB(100000))

	res, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 3))
	if err != nil {
		t.Fatal(err)
	}

	snap, err := f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Remaining[tourDate]; got != 1 {
		t.Fatalf("remaining before cancel: got %d, want 1", got)
	}

	if _, err := f.eng.TransitionBooking(ctx, res.Booking.ID, booking.ActionCancel, f.guide); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	snap, err = f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap.Remaining[tourDate]; ok {
		t.Errorf("cancelled booking still holds slots: %v", snap.Remaining)
	}
	if got := snap.Slots(tourDate); got != 4 {
		t.Errorf("slots after cancel: got %d, want 4", got)
	}

	if _, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 4)); err != nil {
		t.Errorf("full booking after cancel: %v", err)
	}
}

func TestAvailabilityCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, tourdesk.WithAvailabilityCache(cache.NewMemory(), time.Hour))
	tr := f.tour(t, 5, types.RUB(100000))

	snap, err := f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Remaining) != 0 {
		t.Fatalf("fresh tour: %v", snap.Remaining)
	}

	if _, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 2)); err != nil {
		t.Fatal(err)
	}

	snap, err = f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Remaining[tourDate]; got != 3 {
		t.Errorf("cached availability not invalidated: got %d, want 3", got)
	}
}

func TestAvailabilityIgnoresPastDates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 5, types.RUB(100000))

	past := types.NewDate(2026, time.April, 1)
	f.store.SeedBooking(&booking.Booking{
		ID: id.NewBookingID(), TourID: tr.ID, ClientID: f.client, GuideID: f.guide,
		Date: past, GuestsCount: 5, Status: booking.StatusConfirmed,
	})
	// Oversold data from before capacity was enforced.
	f.store.SeedBooking(&booking.Booking{
		ID: id.NewBookingID(), TourID: tr.ID, ClientID: f.client, GuideID: f.guide,
		Date: tourDate, GuestsCount: 7, Status: booking.StatusConfirmed,
	})

	snap, err := f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap.Remaining[past]; ok {
		t.Errorf("past date reported: %v", snap.Remaining)
	}
	if got := snap.Remaining[tourDate]; got != 0 {
		t.Errorf("oversold date: got %d, want 0", got)
	}
	if got := snap.Overbooked[tourDate]; got != 2 {
		t.Errorf("overbooked excess: got %d, want 2", got)
	}
}

func TestAvailabilityRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 5, types.RUB(100000))

	if _, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 2)); err != nil {
		t.Fatal(err)
	}

	snap, err := f.eng.AvailabilityRange(ctx, tr.ID, tourDate.AddDays(-1), tourDate.AddDays(1))
	if err != nil {
		t.Fatal(err)
	}
	want := map[types.Date]int{
		tourDate.AddDays(-1): 5,
		tourDate:             3,
		tourDate.AddDays(1):  5,
	}
	for d, n := range want {
		if got := snap.Remaining[d]; got != n {
			t.Errorf("%s: got %d, want %d", d, got, n)
		}
	}

	_, err = f.eng.AvailabilityRange(ctx, tr.ID, tourDate, tourDate.AddDays(-3))
	if !tourdesk.IsValidation(err) {
		t.Errorf("inverted range: got %v, want validation error", err)
	}
}

func TestPriceFrozenAtCreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 5, types.RUB(100000))

	res, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.eng.UpdateTourPrice(ctx, tr.ID, types.RUB(250000)); err != nil {
		t.Fatal(err)
	}

	got, err := f.eng.GetBooking(ctx, res.Booking.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := types.RUB(200000); !got.TotalPrice.Equal(want) {
		t.Errorf("total changed: got %s, want %s", got.TotalPrice, want)
	}
}

func TestTransitionRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 5, types.RUB(100000))

	res, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 1))
	if err != nil {
		t.Fatal(err)
	}
	bid := res.Booking.ID

	if _, err := f.eng.TransitionBooking(ctx, bid, booking.ActionConfirm, f.client); !errors.Is(err, tourdesk.ErrForbidden) {
		t.Errorf("client confirm: got %v, want ErrForbidden", err)
	}

	b, err := f.eng.TransitionBooking(ctx, bid, booking.ActionConfirm, f.guide)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if b.Status != booking.StatusConfirmed {
		t.Errorf("status: got %s", b.Status)
	}

	if _, err := f.eng.TransitionBooking(ctx, bid, booking.ActionConfirm, f.guide); !errors.Is(err, tourdesk.ErrInvalidTransition) {
		t.Errorf("re-confirm: got %v, want ErrInvalidTransition", err)
	}
	if _, err := f.eng.TransitionBooking(ctx, bid, booking.ActionCancel, id.Nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err = f.eng.TransitionBooking(ctx, bid, booking.ActionConfirm, f.guide)
	var te *tourdesk.TransitionError
	if !errors.As(err, &te) || te.From != booking.StatusCancelled {
		t.Errorf("confirm cancelled: got %v", err)
	}

	if _, err := f.eng.TransitionBooking(ctx, id.NewBookingID(), booking.ActionCancel, id.Nil); !errors.Is(err, tourdesk.ErrBookingNotFound) {
		t.Errorf("unknown booking: got %v, want ErrBookingNotFound", err)
	}

	inbox, err := f.eng.ListNotifications(ctx, f.client, 0)
	if err != nil {
		t.Fatal(err)
	}
	titles := make([]string, len(inbox))
	for i, n := range inbox {
		titles[i] = n.Title
	}
	want := []string{"Booking cancelled", "Booking confirmed", "Booking created"}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Errorf("client notifications: got %v, want %v", titles, want)
	}
}

func TestConcurrentBookingsNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 4, types.RUB(100000))

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 3))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, tourdesk.ErrCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || rejected != workers-1 {
		t.Errorf("got %d accepted and %d rejected, want 1 and %d", ok, rejected, workers-1)
	}

	snap, err := f.eng.Availability(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Remaining[tourDate]; got != 1 {
		t.Errorf("remaining: got %d, want 1", got)
	}
}

func TestIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 5, types.RUB(100000))

	req := f.request(tr.ID, 2)
	req.IdempotencyKey = uuid.NewString()

	first, err := f.eng.CreateBooking(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.eng.CreateBooking(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Replayed || second.Booking.ID != first.Booking.ID {
		t.Errorf("replay: got %+v", second)
	}

	n, err := f.eng.UnreadCount(ctx, f.client)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("replay dispatched notifications: unread %d, want 1", n)
	}

	req.IdempotencyKey = "not-a-uuid"
	if _, err := f.eng.CreateBooking(ctx, req); !tourdesk.IsValidation(err) {
		t.Errorf("bad key: got %v, want validation error", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 5, types.RUB(100000))

	tests := []struct {
		name  string
		edit  func(*tourdesk.BookingRequest)
		field string
	}{
		{"zero guests", func(r *tourdesk.BookingRequest) { r.GuestsCount = 0 }, "guests_count"},
		{"negative guests", func(r *tourdesk.BookingRequest) { r.GuestsCount = -2 }, "guests_count"},
		{"missing date", func(r *tourdesk.BookingRequest) { r.Date = types.Date{} }, "booking_date"},
		{"missing name", func(r *tourdesk.BookingRequest) { r.ClientName = "  " }, "client_name"},
		{"missing client", func(r *tourdesk.BookingRequest) { r.ClientID = id.Nil }, "client_id"},
		{"wrong id kind", func(r *tourdesk.BookingRequest) { r.TourID = id.NewBookingID() }, "tour_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(tr.ID, 1)
			tt.edit(&req)
			_, err := f.eng.CreateBooking(ctx, req)
			var ve tourdesk.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field: got %s, want %s", ve.Field, tt.field)
			}
		})
	}

	if _, err := f.eng.CreateBooking(ctx, f.request(id.NewTourID(), 1)); !errors.Is(err, tourdesk.ErrTourNotFound) {
		t.Errorf("unknown tour: got %v, want ErrTourNotFound", err)
	}
}

func TestNotificationsReadState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 10, types.RUB(100000))

	for range 3 {
		if _, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 1)); err != nil {
			t.Fatal(err)
		}
	}

	inbox, err := f.eng.Inbox(ctx, f.guide, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox.Notifications) != 2 || inbox.UnreadCount != 3 {
		t.Fatalf("inbox: %d listed, %d unread", len(inbox.Notifications), inbox.UnreadCount)
	}

	if err := f.eng.MarkRead(ctx, f.guide, inbox.Notifications[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := f.eng.MarkRead(ctx, f.client, inbox.Notifications[1].ID); !errors.Is(err, tourdesk.ErrNotificationNotFound) {
		t.Errorf("foreign notification: got %v, want ErrNotificationNotFound", err)
	}

	changed, err := f.eng.MarkAllRead(ctx, f.guide)
	if err != nil {
		t.Fatal(err)
	}
	if changed != 2 {
		t.Errorf("mark all: changed %d, want 2", changed)
	}
	if n, _ := f.eng.UnreadCount(ctx, f.guide); n != 0 {
		t.Errorf("unread after mark all: %d", n)
	}
}

func TestMessaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 10, types.RUB(100000))

	res, err := f.eng.CreateBooking(ctx, f.request(tr.ID, 1))
	if err != nil {
		t.Fatal(err)
	}
	bid := res.Booking.ID

	long := strings.Repeat("я", 150)
	if _, err := f.eng.SendMessage(ctx, bid, f.client, long); err != nil {
		t.Fatalf("client message: %v", err)
	}
	if _, err := f.eng.SendMessage(ctx, bid, f.guide, "See you at 10"); err != nil {
		t.Fatalf("guide message: %v", err)
	}
	if _, err := f.eng.SendMessage(ctx, bid, id.NewUserID(), "hi"); !errors.Is(err, tourdesk.ErrForbidden) {
		t.Errorf("stranger: got %v, want ErrForbidden", err)
	}
	if _, err := f.eng.SendMessage(ctx, bid, f.client, strings.Repeat("a", 2001)); !tourdesk.IsValidation(err) {
		t.Errorf("too long: got %v, want validation error", err)
	}

	msgs, err := f.eng.ListMessages(ctx, bid, f.guide)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].SenderID != f.client || msgs[1].SenderID != f.guide {
		t.Errorf("messages out of order: %+v", msgs)
	}

	inbox, err := f.eng.ListNotifications(ctx, f.guide, 0)
	if err != nil {
		t.Fatal(err)
	}
	var preview *notification.Notification
	for _, n := range inbox {
		if n.Type == notification.TypeMessage {
			preview = n
		}
	}
	if preview == nil {
		t.Fatal("guide got no message notification")
	}
	if got := len([]rune(preview.Message)); got != notification.MessagePreviewLength {
		t.Errorf("preview length: got %d runes", got)
	}
	if preview.Link != "/booking/"+bid.String() {
		t.Errorf("link: got %s", preview.Link)
	}
}

func TestUpdateTourCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tour(t, 0, types.RUB(100000))

	if tr.MaxGuests != tour.DefaultMaxGuests || tr.Status != tour.StatusPending || tr.InstantBooking {
		t.Fatalf("new tour defaults: %+v", tr)
	}

	got, err := f.eng.UpdateTourCapacity(ctx, tr.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.MaxGuests != 3 {
		t.Errorf("max guests: got %d", got.MaxGuests)
	}

	if _, err := f.eng.ModerateTour(ctx, tr.ID, tour.ActionApprove); err != nil {
		t.Fatal(err)
	}
	if _, err := f.eng.UpdateTourCapacity(ctx, tr.ID, 6); !errors.Is(err, tourdesk.ErrInvalidTransition) {
		t.Errorf("active tour: got %v, want ErrInvalidTransition", err)
	}
}
