package tourdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xraph/tourdesk/availability"
	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/types"
)

// BookingRequest is a client's request to reserve seats on a tour date.
type BookingRequest struct {
	TourID        id.TourID
	ClientID      id.UserID
	Date          types.Date
	GuestsCount   int
	ClientName    string
	ClientContact string

	// IdempotencyKey, when set, must be a UUID. Repeating a request with the
	// same key returns the original booking instead of creating another;
	// reusing it for a different tour, date or party size is a conflict.
	IdempotencyKey string
}

// Validate checks the request without touching the store.
func (r BookingRequest) Validate() error {
	var errs MultiError
	if r.TourID.IsNil() {
		errs.Add(ValidationError{Field: "tour_id", Message: "is required"})
	} else if r.TourID.Prefix() != id.PrefixTour {
		errs.Add(ValidationError{Field: "tour_id", Message: "is not a tour identifier"})
	}
	if r.ClientID.IsNil() {
		errs.Add(ValidationError{Field: "client_id", Message: "is required"})
	}
	if r.Date.IsZero() {
		errs.Add(ValidationError{Field: "booking_date", Message: "is required"})
	}
	if r.GuestsCount < 1 {
		errs.Add(ValidationError{Field: "guests_count", Message: "must be at least 1"})
	}
	if strings.TrimSpace(r.ClientName) == "" {
		errs.Add(ValidationError{Field: "client_name", Message: "is required"})
	}
	if r.IdempotencyKey != "" {
		if _, err := uuid.Parse(r.IdempotencyKey); err != nil {
			errs.Add(ValidationError{Field: "idempotency_key", Message: "must be a UUID"})
		}
	}
	return errs.ErrOrNil()
}

// matches reports whether b is what r would have created. A replayed key
// must carry the same tour, date and party size as its first use.
func (r BookingRequest) matches(b *booking.Booking) bool {
	return b.TourID == r.TourID && b.Date == r.Date && b.GuestsCount == r.GuestsCount
}

// BookingResult is the outcome of CreateBooking.
type BookingResult struct {
	Booking *booking.Booking

	// Replayed is true when the booking already existed under the request's
	// idempotency key. Nothing was written or dispatched.
	Replayed bool
}

// CreateBooking reserves seats on a tour date. The capacity check, the
// booking insert and both notifications happen in one transaction; a request
// that would push pending plus confirmed guests over max_guests fails with
// ErrCapacityExceeded and leaves nothing behind.
func (e *Engine) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientContact = strings.TrimSpace(req.ClientContact)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := e.lookupUser(ctx, req.ClientID); err != nil {
		return nil, err
	}

	var (
		result   *BookingResult
		sent     []*notification.Notification
		rejected *CapacityError
	)

	err := e.store.Tx(ctx, func(ctx context.Context, tx store.Tx) error {
		// The store may retry fn; start from a clean slate each time.
		result, sent, rejected = nil, nil, nil

		t, err := tx.LockTour(ctx, req.TourID)
		if err != nil {
			return err
		}

		// Checked under the tour lock so concurrent replays of one key
		// serialize behind the first insert.
		if req.IdempotencyKey != "" {
			existing, err := tx.FindBookingByIdempotencyKey(ctx, req.ClientID, req.IdempotencyKey)
			switch {
			case err == nil:
				if !req.matches(existing) {
					return fmt.Errorf("%w: idempotency key %s belongs to a different booking",
						ErrAlreadyExists, req.IdempotencyKey)
				}
				result = &BookingResult{Booking: existing, Replayed: true}
				return nil
			case !IsNotFound(err):
				return err
			}
		}

		booked, err := tx.BookedGuests(ctx, t.ID, req.Date)
		if err != nil {
			return err
		}
		capacity := t.Capacity(e.defaultCapacity)
		if !availability.Fits(capacity, booked, req.GuestsCount) {
			rejected = &CapacityError{Requested: req.GuestsCount, Booked: booked, Capacity: capacity}
			return rejected
		}

		now := e.clock()
		b := &booking.Booking{
			Entity:         types.NewEntityAt(now),
			ID:             id.NewBookingID(),
			TourID:         t.ID,
			ClientID:       req.ClientID,
			GuideID:        t.GuideID,
			Date:           req.Date,
			GuestsCount:    req.GuestsCount,
			TotalPrice:     t.Price.Multiply(int64(req.GuestsCount)),
			Status:         booking.InitialStatus(t.InstantBooking),
			ClientName:     req.ClientName,
			ClientContact:  req.ClientContact,
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}

		confirmed := b.Status == booking.StatusConfirmed
		d := store.Dispatcher(tx, now, &sent)
		if _, err := d.Dispatch(ctx, notification.BookingCreatedForGuide(b.GuideID, b.ClientName, b.Date.String(), confirmed)); err != nil {
			return err
		}
		if _, err := d.Dispatch(ctx, notification.BookingCreatedForClient(b.ClientID, confirmed)); err != nil {
			return err
		}

		result = &BookingResult{Booking: b}
		return nil
	})
	if err != nil {
		if rejected != nil {
			e.logger.Warn("booking rejected: capacity exceeded",
				"tour_id", req.TourID,
				"date", req.Date,
				"requested", rejected.Requested,
				"booked", rejected.Booked,
				"capacity", rejected.Capacity,
			)
			e.plugins.EmitCapacityRejected(ctx, req.TourID, req.Date, rejected.Requested, rejected.Booked, rejected.Capacity)
		}
		return nil, WrapStore("create booking", err)
	}

	if result.Replayed {
		e.logger.Debug("booking replayed",
			"booking_id", result.Booking.ID,
			"idempotency_key", req.IdempotencyKey,
		)
		return result, nil
	}

	e.invalidate(ctx, req.TourID)
	e.plugins.EmitBookingCreated(ctx, result.Booking)
	e.announce(ctx, sent)

	e.logger.Info("booking created",
		"booking_id", result.Booking.ID,
		"tour_id", result.Booking.TourID,
		"date", result.Booking.Date,
		"guests", result.Booking.GuestsCount,
		"status", result.Booking.Status,
	)

	return result, nil
}

// TransitionBooking applies a guide's confirm or cancel. When actor is not
// nil it must be the booking's guide. The status update and the client
// notification commit together.
func (e *Engine) TransitionBooking(ctx context.Context, bookingID id.BookingID, action booking.Action, actor id.UserID) (*booking.Booking, error) {
	if bookingID.IsNil() {
		return nil, ValidationError{Field: "booking_id", Message: "is required"}
	}
	if action != booking.ActionConfirm && action != booking.ActionCancel {
		return nil, ValidationError{Field: "action", Message: "must be confirm or cancel"}
	}

	var (
		updated *booking.Booking
		from    booking.Status
		sent    []*notification.Notification
	)

	err := e.store.Tx(ctx, func(ctx context.Context, tx store.Tx) error {
		updated, sent = nil, nil

		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !actor.IsNil() && actor != b.GuideID {
			return ErrForbidden
		}

		next, ok := booking.Next(b.Status, action)
		if !ok {
			return &TransitionError{From: b.Status, Action: action}
		}

		now := e.clock()
		from = b.Status
		b.Status = next
		b.TouchAt(now)
		if err := tx.UpdateBookingStatus(ctx, b); err != nil {
			return err
		}

		var draft notification.Draft
		switch action {
		case booking.ActionConfirm:
			draft = notification.BookingConfirmed(b.ClientID)
		case booking.ActionCancel:
			draft = notification.BookingCancelled(b.ClientID)
		}
		if _, err := store.Dispatcher(tx, now, &sent).Dispatch(ctx, draft); err != nil {
			return err
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, WrapStore("transition booking", err)
	}

	if !updated.Status.Holds() {
		e.invalidate(ctx, updated.TourID)
	}
	e.plugins.EmitBookingTransitioned(ctx, updated, from, action)
	e.announce(ctx, sent)

	e.logger.Info("booking transitioned",
		"booking_id", updated.ID,
		"action", action,
		"from", from,
		"to", updated.Status,
	)

	return updated, nil
}

// GetBooking retrieves a booking by ID.
func (e *Engine) GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	b, err := e.store.GetBooking(ctx, bookingID)
	return b, WrapStore("get booking", err)
}

// ListClientBookings lists a client's bookings, latest booking date first.
func (e *Engine) ListClientBookings(ctx context.Context, clientID id.UserID, limit, offset int) ([]*booking.Booking, error) {
	if clientID.IsNil() {
		return nil, ValidationError{Field: "client_id", Message: "is required"}
	}
	list, err := e.store.ListBookings(ctx, booking.ListOpts{ClientID: clientID, Limit: limit, Offset: offset})
	return list, WrapStore("list bookings", err)
}

// ListGuideBookings lists bookings on a guide's tours, latest booking date first.
func (e *Engine) ListGuideBookings(ctx context.Context, guideID id.UserID, status booking.Status, limit, offset int) ([]*booking.Booking, error) {
	if guideID.IsNil() {
		return nil, ValidationError{Field: "guide_id", Message: "is required"}
	}
	list, err := e.store.ListBookings(ctx, booking.ListOpts{GuideID: guideID, Status: status, Limit: limit, Offset: offset})
	return list, WrapStore("list bookings", err)
}

func (e *Engine) lookupUser(ctx context.Context, userID id.UserID) error {
	if e.directory == nil {
		return nil
	}
	if _, err := e.directory.Lookup(ctx, userID); err != nil {
		return errors.Join(ErrUserNotFound, err)
	}
	return nil
}

func (e *Engine) announce(ctx context.Context, sent []*notification.Notification) {
	for _, n := range sent {
		e.plugins.EmitNotificationDispatched(ctx, n)
	}
}
