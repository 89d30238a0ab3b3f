package tourdesk

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// TourInput describes a new tour submitted by a guide.
type TourInput struct {
	GuideID   id.UserID
	Title     string
	City      string
	Price     types.Money
	MaxGuests int

	// InstantBooking lets bookings skip the guide's confirmation.
	// Approval by a moderator turns it on regardless.
	InstantBooking bool
}

func (in TourInput) validate() error {
	var errs MultiError
	if in.GuideID.IsNil() {
		errs.Add(ValidationError{Field: "guide_id", Message: "is required"})
	}
	if strings.TrimSpace(in.Title) == "" {
		errs.Add(ValidationError{Field: "title", Message: "is required"})
	}
	if in.Price.IsNegative() {
		errs.Add(ValidationError{Field: "price", Message: "must not be negative"})
	}
	if in.MaxGuests < 0 {
		errs.Add(ValidationError{Field: "max_guests", Message: "must not be negative"})
	}
	return errs.ErrOrNil()
}

// CreateTour stores a new tour awaiting moderation.
func (e *Engine) CreateTour(ctx context.Context, in TourInput) (*tour.Tour, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := e.lookupUser(ctx, in.GuideID); err != nil {
		return nil, err
	}

	price := in.Price
	if price.Currency == "" {
		price.Currency = types.DefaultCurrency
	}
	maxGuests := in.MaxGuests
	if maxGuests == 0 {
		maxGuests = tour.DefaultMaxGuests
	}

	t := &tour.Tour{
		Entity:    types.NewEntityAt(e.clock()),
		ID:        id.NewTourID(),
		GuideID:   in.GuideID,
		Title:     strings.TrimSpace(in.Title),
		City:      strings.TrimSpace(in.City),
		Price:     price,
		MaxGuests: maxGuests,
		Status:    tour.StatusPending,

		InstantBooking: in.InstantBooking,
	}
	if err := e.store.CreateTour(ctx, t); err != nil {
		return nil, WrapStore("create tour", err)
	}

	e.plugins.EmitTourCreated(ctx, t)
	e.logger.Info("tour created", "tour_id", t.ID, "guide_id", t.GuideID, "max_guests", t.MaxGuests)

	return t, nil
}

// GetTour retrieves a tour by ID.
func (e *Engine) GetTour(ctx context.Context, tourID id.TourID) (*tour.Tour, error) {
	t, err := e.store.GetTour(ctx, tourID)
	return t, WrapStore("get tour", err)
}

// ListTours lists tours matching opts.
func (e *Engine) ListTours(ctx context.Context, opts tour.ListOpts) ([]*tour.Tour, error) {
	list, err := e.store.ListTours(ctx, opts)
	return list, WrapStore("list tours", err)
}

// ModerateTour approves or rejects a tour.
func (e *Engine) ModerateTour(ctx context.Context, tourID id.TourID, action tour.Action) (*tour.Tour, error) {
	if action != tour.ActionApprove && action != tour.ActionReject {
		return nil, ValidationError{Field: "action", Message: "must be approve or reject"}
	}

	t, err := e.patchTour(ctx, tourID, func(_ context.Context, _ store.Tx, t *tour.Tour) (tour.Patch, error) {
		if err := t.Moderate(action); err != nil {
			return tour.Patch{}, err
		}
		return tour.Patch{Status: &t.Status, InstantBooking: &t.InstantBooking}, nil
	})
	if err != nil {
		return nil, WrapStore("moderate tour", err)
	}

	e.invalidate(ctx, t.ID)
	e.plugins.EmitTourModerated(ctx, t, action)
	e.logger.Info("tour moderated", "tour_id", t.ID, "action", action, "status", t.Status)

	return t, nil
}

// UpdateTourPrice changes the per-guest price. Existing bookings keep the
// total they were created with.
func (e *Engine) UpdateTourPrice(ctx context.Context, tourID id.TourID, price types.Money) (*tour.Tour, error) {
	if price.IsNegative() {
		return nil, ValidationError{Field: "price", Message: "must not be negative"}
	}

	t, err := e.patchTour(ctx, tourID, func(_ context.Context, _ store.Tx, t *tour.Tour) (tour.Patch, error) {
		p := price
		if p.Currency == "" {
			p.Currency = t.Price.Currency
		}
		return tour.Patch{Price: &p}, nil
	})
	if err != nil {
		return nil, WrapStore("update tour price", err)
	}

	e.logger.Info("tour price updated", "tour_id", t.ID, "price", t.Price)
	return t, nil
}

// UpdateTourCapacity changes max_guests. Capacity of an active tour is
// fixed, and no tour may shrink below the guests already held on any date
// from today on.
func (e *Engine) UpdateTourCapacity(ctx context.Context, tourID id.TourID, maxGuests int) (*tour.Tour, error) {
	if maxGuests < 1 {
		return nil, ValidationError{Field: "max_guests", Message: "must be at least 1"}
	}

	today := e.today()
	t, err := e.patchTour(ctx, tourID, func(ctx context.Context, tx store.Tx, t *tour.Tour) (tour.Patch, error) {
		if t.Status == tour.StatusActive {
			return tour.Patch{}, ErrInvalidTransition
		}
		peak, err := tx.PeakGuests(ctx, t.ID, today)
		if err != nil {
			return tour.Patch{}, err
		}
		if peak > maxGuests {
			return tour.Patch{}, fmt.Errorf("%w: %d guests already booked on one date, above %d",
				ErrCapacityExceeded, peak, maxGuests)
		}
		return tour.Patch{MaxGuests: &maxGuests}, nil
	})
	if err != nil {
		return nil, WrapStore("update tour capacity", err)
	}

	e.invalidate(ctx, t.ID)
	e.logger.Info("tour capacity updated", "tour_id", t.ID, "max_guests", t.MaxGuests)
	return t, nil
}

// patchTour locks the tour, asks change for the fields to write and writes
// only those. Holding the lock serializes tour changes with bookings.
func (e *Engine) patchTour(
	ctx context.Context,
	tourID id.TourID,
	change func(ctx context.Context, tx store.Tx, t *tour.Tour) (tour.Patch, error),
) (*tour.Tour, error) {
	if tourID.IsNil() {
		return nil, ValidationError{Field: "tour_id", Message: "is required"}
	}

	var out *tour.Tour
	err := e.store.Tx(ctx, func(ctx context.Context, tx store.Tx) error {
		out = nil

		t, err := tx.LockTour(ctx, tourID)
		if err != nil {
			return err
		}
		p, err := change(ctx, tx, t)
		if err != nil {
			return err
		}
		p.UpdatedAt = e.clock()
		if err := tx.PatchTour(ctx, t.ID, p); err != nil {
			return err
		}

		p.Apply(t)
		out = t
		return nil
	})
	return out, err
}
