// Package message holds the chat messages exchanged on a booking.
package message

import (
	"context"
	"time"

	"github.com/xraph/tourdesk/id"
)

// MaxBodyLength is the maximum number of runes in a message body.
const MaxBodyLength = 2000

type Message struct {
	ID        id.MessageID `json:"id"`
	BookingID id.BookingID `json:"booking_id"`
	SenderID  id.UserID    `json:"sender_id"`
	Body      string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

type Store interface {
	// ListMessages returns a booking's messages oldest first.
	ListMessages(ctx context.Context, bookingID id.BookingID) ([]*Message, error)
}
