package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tourdesk/availability"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	tourID := id.NewTourID()
	from := types.NewDate(2024, time.July, 1)

	if _, err := c.Get(ctx, tourID, from); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss on empty cache, got %v", err)
	}

	snap := availability.Snapshot{
		TourID:    tourID,
		MaxGuests: 4,
		From:      from,
		Remaining: map[types.Date]int{from: 1},
	}
	if err := c.Set(ctx, snap, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, tourID, from)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Remaining[from] != 1 || got.MaxGuests != 4 {
		t.Errorf("unexpected snapshot %+v", got)
	}

	// Returned snapshots are copies.
	got.Remaining[from] = 99
	again, _ := c.Get(ctx, tourID, from)
	if again.Remaining[from] != 1 {
		t.Error("cache entry was mutated through a returned snapshot")
	}

	// A different start date is a different entry.
	if _, err := c.Get(ctx, tourID, from.AddDays(1)); !errors.Is(err, ErrMiss) {
		t.Errorf("expected miss for another day, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Get(ctx, tourID, from); !errors.Is(err, ErrMiss) {
		t.Errorf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	tourID := id.NewTourID()
	from := types.NewDate(2024, time.July, 1)

	_ = c.Set(ctx, availability.Snapshot{TourID: tourID, From: from, Remaining: map[types.Date]int{}}, 0)
	_ = c.Set(ctx, availability.Snapshot{TourID: tourID, From: from.AddDays(1), Remaining: map[types.Date]int{}}, 0)

	if err := c.Invalidate(ctx, tourID); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	for _, d := range []types.Date{from, from.AddDays(1)} {
		if _, err := c.Get(ctx, tourID, d); !errors.Is(err, ErrMiss) {
			t.Errorf("%s: expected miss after invalidate, got %v", d, err)
		}
	}
}
