// Package memory is an in-process store. Transactions are serialized by a
// single lock and their writes are staged until commit, which makes it a
// faithful stand-in for the SQL backends in tests and single-node setups.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	// txMu serializes transactions; mu guards the maps below.
	txMu sync.Mutex
	mu   sync.RWMutex

	tours         map[id.TourID]*tour.Tour
	bookings      map[id.BookingID]*booking.Booking
	notifications []*notification.Notification
	messages      map[id.BookingID][]*message.Message
	closed        bool
}

func New() *Store {
	return &Store{
		tours:    make(map[id.TourID]*tour.Tour),
		bookings: make(map[id.BookingID]*booking.Booking),
		messages: make(map[id.BookingID][]*message.Message),
	}
}

// ==================== Tours ====================

func (s *Store) CreateTour(_ context.Context, t *tour.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return tourdesk.ErrStoreClosed
	}

	if _, exists := s.tours[t.ID]; exists {
		return tourdesk.ErrAlreadyExists
	}
	cp := *t
	s.tours[t.ID] = &cp
	return nil
}

func (s *Store) GetTour(_ context.Context, tourID id.TourID) (*tour.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, tourdesk.ErrStoreClosed
	}
	return s.tourLocked(tourID)
}

func (s *Store) tourLocked(tourID id.TourID) (*tour.Tour, error) {
	t, ok := s.tours[tourID]
	if !ok {
		return nil, tourdesk.ErrTourNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTours(_ context.Context, opts tour.ListOpts) ([]*tour.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, tourdesk.ErrStoreClosed
	}

	result := make([]*tour.Tour, 0)
	for _, t := range s.tours {
		if !opts.GuideID.IsNil() && t.GuideID != opts.GuideID {
			continue
		}
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return page(result, opts.Offset, opts.Limit), nil
}

// ==================== Bookings ====================

func (s *Store) GetBooking(_ context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, tourdesk.ErrStoreClosed
	}

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, tourdesk.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) ListBookings(_ context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, tourdesk.ErrStoreClosed
	}

	result := make([]*booking.Booking, 0)
	for _, b := range s.bookings {
		if !opts.ClientID.IsNil() && b.ClientID != opts.ClientID {
			continue
		}
		if !opts.GuideID.IsNil() && b.GuideID != opts.GuideID {
			continue
		}
		if !opts.TourID.IsNil() && b.TourID != opts.TourID {
			continue
		}
		if opts.Status != "" && b.Status != opts.Status {
			continue
		}
		cp := *b
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListSeats(_ context.Context, tourID id.TourID, from types.Date) ([]booking.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, tourdesk.ErrStoreClosed
	}

	var seats []booking.Seat
	for _, b := range s.bookings {
		if b.TourID == tourID && !b.Date.Before(from) {
			seats = append(seats, b.Seat())
		}
	}
	return seats, nil
}

// ==================== Notifications ====================

func (s *Store) ListNotifications(_ context.Context, userID id.UserID, limit int) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, tourdesk.ErrStoreClosed
	}

	limit = notification.ClampLimit(limit)
	result := make([]*notification.Notification, 0)
	// Walk backwards so equal timestamps still come out newest-first.
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID {
			continue
		}
		cp := *n
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) UnreadCount(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, tourdesk.ErrStoreClosed
	}

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkRead(_ context.Context, userID id.UserID, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return tourdesk.ErrStoreClosed
	}

	for _, n := range s.notifications {
		if n.ID == notificationID && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return tourdesk.ErrNotificationNotFound
}

func (s *Store) MarkAllRead(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, tourdesk.ErrStoreClosed
	}

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

// ==================== Messages ====================

func (s *Store) ListMessages(_ context.Context, bookingID id.BookingID) ([]*message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, tourdesk.ErrStoreClosed
	}

	msgs := s.messages[bookingID]
	result := make([]*message.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		result = append(result, &cp)
	}
	return result, nil
}

// ==================== Transactions ====================

// Tx implements store.Store. Writes made through the tx are invisible to
// other readers until fn returns nil.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return tourdesk.ErrStoreClosed
	}

	t := &tx{
		s:       s,
		updates: make(map[id.BookingID]*booking.Booking),
		tours:   make(map[id.TourID]*tour.Tour),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.commit()
	return nil
}

type tx struct {
	s *Store

	inserts       []*booking.Booking
	updates       map[id.BookingID]*booking.Booking
	tours         map[id.TourID]*tour.Tour
	notifications []*notification.Notification
	messages      []*message.Message
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, b := range t.inserts {
		t.s.bookings[b.ID] = b
	}
	for bid, b := range t.updates {
		t.s.bookings[bid] = b
	}
	for tid, tr := range t.tours {
		t.s.tours[tid] = tr
	}
	t.s.notifications = append(t.s.notifications, t.notifications...)
	for _, m := range t.messages {
		t.s.messages[m.BookingID] = append(t.s.messages[m.BookingID], m)
	}
}

// view returns the booking as this transaction sees it.
func (t *tx) view(bookingID id.BookingID) (*booking.Booking, bool) {
	if b, ok := t.updates[bookingID]; ok {
		return b, true
	}
	for _, b := range t.inserts {
		if b.ID == bookingID {
			return b, true
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[bookingID]
	return b, ok
}

func (t *tx) LockTour(_ context.Context, tourID id.TourID) (*tour.Tour, error) {
	if tr, ok := t.tours[tourID]; ok {
		cp := *tr
		return &cp, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.tourLocked(tourID)
}

func (t *tx) PatchTour(ctx context.Context, tourID id.TourID, p tour.Patch) error {
	tr, err := t.LockTour(ctx, tourID)
	if err != nil {
		return err
	}
	p.Apply(tr)
	t.tours[tourID] = tr
	return nil
}

// held sums guests of pending and confirmed bookings per date, as this
// transaction sees them.
func (t *tx) held(tourID id.TourID) map[types.Date]int {
	t.s.mu.RLock()
	all := make([]*booking.Booking, 0, len(t.s.bookings))
	for _, b := range t.s.bookings {
		all = append(all, b)
	}
	t.s.mu.RUnlock()
	all = append(all, t.inserts...)

	out := make(map[types.Date]int)
	for _, b := range all {
		if cur, ok := t.updates[b.ID]; ok {
			b = cur
		}
		if b.TourID == tourID && b.Status.Holds() {
			out[b.Date] += b.GuestsCount
		}
	}
	return out
}

func (t *tx) BookedGuests(_ context.Context, tourID id.TourID, date types.Date) (int, error) {
	return t.held(tourID)[date], nil
}

func (t *tx) PeakGuests(_ context.Context, tourID id.TourID, from types.Date) (int, error) {
	peak := 0
	for d, n := range t.held(tourID) {
		if !d.Before(from) && n > peak {
			peak = n
		}
	}
	return peak, nil
}

func (t *tx) FindBookingByIdempotencyKey(_ context.Context, clientID id.UserID, key string) (*booking.Booking, error) {
	for _, b := range t.inserts {
		if b.ClientID == clientID && b.IdempotencyKey == key {
			cp := *b
			return &cp, nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, b := range t.s.bookings {
		if b.ClientID == clientID && b.IdempotencyKey == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, tourdesk.ErrBookingNotFound
}

func (t *tx) InsertBooking(_ context.Context, b *booking.Booking) error {
	if _, exists := t.view(b.ID); exists {
		return tourdesk.ErrAlreadyExists
	}
	cp := *b
	t.inserts = append(t.inserts, &cp)
	return nil
}

func (t *tx) GetBookingForUpdate(_ context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	b, ok := t.view(bookingID)
	if !ok {
		return nil, tourdesk.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (t *tx) UpdateBookingStatus(_ context.Context, b *booking.Booking) error {
	cur, ok := t.view(b.ID)
	if !ok {
		return tourdesk.ErrBookingNotFound
	}
	cp := *cur
	cp.Status = b.Status
	cp.UpdatedAt = b.UpdatedAt
	t.updates[b.ID] = &cp
	return nil
}

func (t *tx) InsertNotification(_ context.Context, n *notification.Notification) error {
	cp := *n
	t.notifications = append(t.notifications, &cp)
	return nil
}

func (t *tx) InsertMessage(_ context.Context, m *message.Message) error {
	cp := *m
	t.messages = append(t.messages, &cp)
	return nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return tourdesk.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && limit < end-start {
		end = start + limit
	}
	return items[start:end]
}

// SeedBooking stores b as if it had been committed by a transaction.
// Tests use it to set up oversold or historical states.
func (s *Store) SeedBooking(b *booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	if cp.CreatedAt.IsZero() {
		cp.Entity = types.NewEntityAt(time.Now())
	}
	s.bookings[b.ID] = &cp
}
