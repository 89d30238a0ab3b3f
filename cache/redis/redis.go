// Package redis implements cache.Cache on Redis. Each tour owns one hash
// keyed by start date, so invalidating a tour is a single DEL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/xraph/tourdesk/availability"
	"github.com/xraph/tourdesk/cache"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

// compile-time interface check
var _ cache.Cache = (*Cache)(nil)

// DefaultPrefix namespaces every key written by the cache.
const DefaultPrefix = "tourdesk:availability:"

type Cache struct {
	client *goredis.Client
	prefix string
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// New wraps an existing client.
func New(client *goredis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tourdesk/redis: ping %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

// Client returns the underlying redis client.
func (c *Cache) Client() *goredis.Client { return c.client }

func (c *Cache) key(tourID id.TourID) string {
	return c.prefix + tourID.String()
}

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, tourID id.TourID, from types.Date) (availability.Snapshot, error) {
	raw, err := c.client.HGet(ctx, c.key(tourID), from.String()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return availability.Snapshot{}, cache.ErrMiss
	}
	if err != nil {
		return availability.Snapshot{}, fmt.Errorf("tourdesk/redis: get %s: %w", tourID, err)
	}
	return decode(raw)
}

// Set implements cache.Cache. The TTL applies to the tour's whole hash,
// so writing a new start date also extends the older ones.
func (c *Cache) Set(ctx context.Context, snap availability.Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	raw, err := encode(snap)
	if err != nil {
		return err
	}

	key := c.key(snap.TourID)
	_, err = c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, snap.From.String(), raw)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("tourdesk/redis: set %s: %w", snap.TourID, err)
	}
	return nil
}

// Invalidate implements cache.Cache.
func (c *Cache) Invalidate(ctx context.Context, tourID id.TourID) error {
	if err := c.client.Del(ctx, c.key(tourID)).Err(); err != nil {
		return fmt.Errorf("tourdesk/redis: invalidate %s: %w", tourID, err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error { return c.client.Close() }

type wireSnapshot struct {
	TourID     id.TourID          `json:"tour_id"`
	MaxGuests  int                `json:"max_guests"`
	From       types.Date         `json:"from"`
	Remaining  map[types.Date]int `json:"remaining"`
	Overbooked map[types.Date]int `json:"overbooked,omitempty"`
}

func encode(s availability.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(wireSnapshot{
		TourID:     s.TourID,
		MaxGuests:  s.MaxGuests,
		From:       s.From,
		Remaining:  s.Remaining,
		Overbooked: s.Overbooked,
	})
	if err != nil {
		return nil, fmt.Errorf("tourdesk/redis: encode snapshot: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (availability.Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(raw, &w); err != nil {
		return availability.Snapshot{}, fmt.Errorf("tourdesk/redis: decode snapshot: %w", err)
	}
	if w.Remaining == nil {
		w.Remaining = make(map[types.Date]int)
	}
	return availability.Snapshot{
		TourID:     w.TourID,
		MaxGuests:  w.MaxGuests,
		From:       w.From,
		Remaining:  w.Remaining,
		Overbooked: w.Overbooked,
	}, nil
}
