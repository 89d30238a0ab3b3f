package tourdesk

import (
	"context"

	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/notification"
)

// Inbox is a user's notification listing with the unread total.
type Inbox struct {
	Notifications []*notification.Notification `json:"notifications"`
	UnreadCount   int                          `json:"unread_count"`
}

// ListNotifications returns up to limit of the user's notifications, newest
// first. Limits outside (0, 50] become 50.
func (e *Engine) ListNotifications(ctx context.Context, userID id.UserID, limit int) ([]*notification.Notification, error) {
	if userID.IsNil() {
		return nil, ValidationError{Field: "user_id", Message: "is required"}
	}
	list, err := e.store.ListNotifications(ctx, userID, notification.ClampLimit(limit))
	return list, WrapStore("list notifications", err)
}

// UnreadCount counts the user's unread notifications.
func (e *Engine) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	if userID.IsNil() {
		return 0, ValidationError{Field: "user_id", Message: "is required"}
	}
	n, err := e.store.UnreadCount(ctx, userID)
	return n, WrapStore("unread count", err)
}

// Inbox combines ListNotifications and UnreadCount.
func (e *Engine) Inbox(ctx context.Context, userID id.UserID, limit int) (*Inbox, error) {
	list, err := e.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := e.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*notification.Notification{}
	}
	return &Inbox{Notifications: list, UnreadCount: unread}, nil
}

// MarkRead marks one of the user's notifications read. Marking a read
// notification again is a no-op.
func (e *Engine) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	if userID.IsNil() {
		return ValidationError{Field: "user_id", Message: "is required"}
	}
	if notificationID.IsNil() {
		return ValidationError{Field: "notification_id", Message: "is required"}
	}
	return WrapStore("mark read", e.store.MarkRead(ctx, userID, notificationID))
}

// MarkAllRead marks every notification of the user read and returns how many
// changed.
func (e *Engine) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	if userID.IsNil() {
		return 0, ValidationError{Field: "user_id", Message: "is required"}
	}
	n, err := e.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, WrapStore("mark all read", err)
	}
	e.logger.Debug("notifications marked read", "user_id", userID, "count", n)
	return n, nil
}
