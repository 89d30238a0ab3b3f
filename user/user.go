// Package user is the identity directory the booking engine consults for
// guides and clients. Registration and authentication live elsewhere.
package user

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/tourdesk/id"
)

type Role string

const (
	RoleClient Role = "client"
	RoleGuide  Role = "guide"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID       id.UserID `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Telegram string    `json:"telegram,omitempty"`
}

// ErrUnknownUser is returned by a Directory for an unknown identifier.
var ErrUnknownUser = errors.New("user: unknown user")

// Directory resolves user identities.
type Directory interface {
	Lookup(ctx context.Context, userID id.UserID) (*User, error)
}

// MapDirectory is an in-memory Directory.
type MapDirectory struct {
	mu    sync.RWMutex
	users map[id.UserID]*User
}

// NewMapDirectory returns a directory seeded with users.
func NewMapDirectory(users ...*User) *MapDirectory {
	d := &MapDirectory{users: make(map[id.UserID]*User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Put adds or replaces a user.
func (d *MapDirectory) Put(u *User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// Lookup implements Directory.
func (d *MapDirectory) Lookup(_ context.Context, userID id.UserID) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	cp := *u
	return &cp, nil
}
