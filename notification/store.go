package notification

import (
	"context"

	"github.com/xraph/tourdesk/id"
)

// MaxListLimit caps a single notification listing.
const MaxListLimit = 50

type Store interface {
	// ListNotifications returns the newest notifications first.
	ListNotifications(ctx context.Context, userID id.UserID, limit int) ([]*Notification, error)
	UnreadCount(ctx context.Context, userID id.UserID) (int, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
	MarkAllRead(ctx context.Context, userID id.UserID) (int, error)
}

// ClampLimit normalizes a requested listing size into (0, MaxListLimit].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
