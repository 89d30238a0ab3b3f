package tourdesk

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/tourdesk/availability"
	"github.com/xraph/tourdesk/cache"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

// Availability returns remaining slots for every date from today on that has
// a pending or confirmed booking. Dates not listed are fully available.
func (e *Engine) Availability(ctx context.Context, tourID id.TourID) (availability.Snapshot, error) {
	if tourID.IsNil() {
		return availability.Snapshot{}, ValidationError{Field: "tour_id", Message: "is required"}
	}
	today := e.today()

	var gen uint64
	if e.cache != nil {
		snap, err := e.cache.Get(ctx, tourID, today)
		switch {
		case err == nil:
			return snap, nil
		case !errors.Is(err, cache.ErrMiss):
			e.logger.Warn("availability cache read failed", "tour_id", tourID, "error", err)
		}
		gen = e.fills.begin(tourID)
	}

	t, err := e.store.GetTour(ctx, tourID)
	if err != nil {
		return availability.Snapshot{}, WrapStore("availability", err)
	}
	seats, err := e.store.ListSeats(ctx, tourID, today)
	if err != nil {
		return availability.Snapshot{}, WrapStore("availability", err)
	}

	snap := availability.Build(t.ID, t.Capacity(e.defaultCapacity), seats, today)
	for d, excess := range snap.Overbooked {
		e.logger.Warn("tour date overbooked",
			"tour_id", t.ID,
			"date", d,
			"capacity", snap.MaxGuests,
			"excess", excess,
		)
	}

	if e.cache != nil {
		stored, err := e.fills.fill(tourID, gen, func() error {
			return e.cache.Set(ctx, snap, e.cacheTTL)
		})
		switch {
		case err != nil:
			e.logger.Warn("availability cache write failed", "tour_id", tourID, "error", err)
		case !stored:
			e.logger.Debug("availability cache fill skipped: tour changed during read", "tour_id", tourID)
		}
	}

	return snap, nil
}

// AvailabilityRange is Availability with every date in [from, to] present,
// fully available dates included. from is clamped to today.
func (e *Engine) AvailabilityRange(ctx context.Context, tourID id.TourID, from, to types.Date) (availability.Snapshot, error) {
	today := e.today()
	if from.IsZero() || from.Before(today) {
		from = today
	}
	dates := availability.Span(from, to, e.maxRangeDays)
	if dates == nil {
		return availability.Snapshot{}, ValidationError{Field: "to", Message: "must be on or after from and within the range limit"}
	}

	snap, err := e.Availability(ctx, tourID)
	if err != nil {
		return availability.Snapshot{}, err
	}
	return snap.Including(dates...), nil
}

func (e *Engine) today() types.Date {
	return types.DateOf(e.now().In(e.location))
}

func (e *Engine) invalidate(ctx context.Context, tourID id.TourID) {
	if e.cache == nil {
		return
	}
	e.fills.bump(tourID)
	if err := e.cache.Invalidate(ctx, tourID); err != nil {
		e.logger.Warn("availability cache invalidation failed", "tour_id", tourID, "error", err)
	}
}

// fillGuard keeps a snapshot read before a write from being cached after
// that write's invalidation. Every invalidation bumps the tour's generation,
// and a fill is stored only while the generation it read under is current.
// The guard is per process: with a cache shared between nodes, a fill racing
// another node's write can still live until its TTL.
type fillGuard struct {
	mu   sync.Mutex
	gens map[id.TourID]*generation
}

type generation struct {
	mu sync.Mutex
	n  uint64
}

func (g *fillGuard) of(tourID id.TourID) *generation {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens == nil {
		g.gens = make(map[id.TourID]*generation)
	}
	gen, ok := g.gens[tourID]
	if !ok {
		gen = new(generation)
		g.gens[tourID] = gen
	}
	return gen
}

func (g *fillGuard) begin(tourID id.TourID) uint64 {
	gen := g.of(tourID)
	gen.mu.Lock()
	defer gen.mu.Unlock()
	return gen.n
}

func (g *fillGuard) bump(tourID id.TourID) {
	gen := g.of(tourID)
	gen.mu.Lock()
	gen.n++
	gen.mu.Unlock()
}

// fill runs set if no invalidation happened since begin returned at. The
// tour's generation stays locked while set runs, so a concurrent bump
// either precedes the check or follows the write it then invalidates.
func (g *fillGuard) fill(tourID id.TourID, at uint64, set func() error) (bool, error) {
	gen := g.of(tourID)
	gen.mu.Lock()
	defer gen.mu.Unlock()
	if gen.n != at {
		return false, nil
	}
	return true, set()
}
