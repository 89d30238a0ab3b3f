// Package tourdesk is the booking core of a guided-tour marketplace.
//
// It is a library: embed an Engine in your service and back it with one of
// the stores under store/. The engine guarantees that the guests of pending
// and confirmed bookings on any tour date never exceed the tour's max_guests,
// even under concurrent requests, and that every booking change commits
// together with the notifications it produces.
//
// # Quick Start
//
//	s := memory.New() // or postgres.New(db), mongo.New(client, "tourdesk")
//
//	eng := tourdesk.New(s,
//	    tourdesk.WithLogger(slog.Default()),
//	    tourdesk.WithAvailabilityCache(cache.NewMemory(), 30*time.Second),
//	)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop(ctx)
//
//	res, err := eng.CreateBooking(ctx, tourdesk.BookingRequest{
//	    TourID:      tourID,
//	    ClientID:    clientID,
//	    Date:        tourdesk.NewDate(2026, time.June, 1),
//	    GuestsCount: 2,
//	    ClientName:  "Anna",
//	})
//	if errors.Is(err, tourdesk.ErrCapacityExceeded) {
//	    // sold out for that date
//	}
//
// # Booking lifecycle
//
// A booking starts pending, or confirmed when the tour has instant booking.
// The guide confirms or cancels a pending booking and cancels a confirmed
// one. Cancelled is terminal. Only pending and confirmed bookings hold seats.
//
// # Money
//
// Prices are integer minor units (kopecks for RUB). A booking's total is
// frozen at creation as price times guests.
//
// # Extensibility
//
// Plugins under plugin/ observe tour, booking, notification and message
// events after they commit. observability, audit_hook and natspub are
// ready-made plugins; extension wires the engine into a Forge app.
package tourdesk
