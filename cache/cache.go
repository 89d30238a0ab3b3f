// Package cache holds derived availability snapshots so repeated catalog
// reads do not re-aggregate bookings. Every booking write invalidates the
// tour's entries, and the engine refuses fills that started before the last
// invalidation it made. A stale read can still happen inside the TTL of a
// failed invalidation, or of a fill racing a write on another node sharing
// the cache.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xraph/tourdesk/availability"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

// ErrMiss is returned by Get when nothing usable is cached.
var ErrMiss = errors.New("cache: miss")

// DefaultTTL bounds how long a snapshot may be served.
const DefaultTTL = 30 * time.Second

// Cache stores availability snapshots per tour and start date.
type Cache interface {
	Get(ctx context.Context, tourID id.TourID, from types.Date) (availability.Snapshot, error)
	Set(ctx context.Context, snap availability.Snapshot, ttl time.Duration) error
	// Invalidate drops every snapshot of the tour.
	Invalidate(ctx context.Context, tourID id.TourID) error
}

type entry struct {
	snap    availability.Snapshot
	expires time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.Mutex
	entries map[id.TourID]map[types.Date]entry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[id.TourID]map[types.Date]entry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, tourID id.TourID, from types.Date) (availability.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[tourID][from]
	if !ok {
		return availability.Snapshot{}, ErrMiss
	}
	if !m.now().Before(e.expires) {
		delete(m.entries[tourID], from)
		return availability.Snapshot{}, ErrMiss
	}
	return e.snap.Clone(), nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, snap availability.Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byDate, ok := m.entries[snap.TourID]
	if !ok {
		byDate = make(map[types.Date]entry)
		m.entries[snap.TourID] = byDate
	}
	byDate[snap.From] = entry{snap: snap.Clone(), expires: m.now().Add(ttl)}
	return nil
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, tourID id.TourID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, tourID)
	return nil
}
