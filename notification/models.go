// Package notification defines per-user notification records and the
// dispatch contract the booking engine writes them through.
package notification

import (
	"context"
	"time"

	"github.com/xraph/tourdesk/id"
)

type Type string

const (
	TypeBooking Type = "booking"
	TypeMessage Type = "message"
)

// Notification is created only as a side effect of a booking or message
// event. The only mutation is flipping IsRead.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	UserID    id.UserID         `json:"user_id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Link      string            `json:"link,omitempty"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}

// Draft is a notification before it is persisted.
type Draft struct {
	Recipient id.UserID
	Type      Type
	Title     string
	Message   string
	Link      string
}

// Build materializes d as an unread Notification stamped at now.
func (d Draft) Build(now time.Time) *Notification {
	return &Notification{
		ID:        id.NewNotificationID(),
		UserID:    d.Recipient,
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		Link:      d.Link,
		CreatedAt: now.UTC(),
	}
}

// Dispatcher persists a draft as an unread notification. Implementations
// bound to a store transaction make the write part of that transaction.
type Dispatcher interface {
	Dispatch(ctx context.Context, d Draft) (*Notification, error)
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(ctx context.Context, d Draft) (*Notification, error)

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, d Draft) (*Notification, error) {
	return f(ctx, d)
}
