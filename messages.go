package tourdesk

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/store"
)

// SendMessage posts a chat message on a booking and notifies the other party.
// Only the booking's client and guide may write.
func (e *Engine) SendMessage(ctx context.Context, bookingID id.BookingID, sender id.UserID, body string) (*message.Message, error) {
	body = strings.TrimSpace(body)

	var errs MultiError
	if bookingID.IsNil() {
		errs.Add(ValidationError{Field: "booking_id", Message: "is required"})
	}
	if sender.IsNil() {
		errs.Add(ValidationError{Field: "sender_id", Message: "is required"})
	}
	switch n := utf8.RuneCountInString(body); {
	case n == 0:
		errs.Add(ValidationError{Field: "message", Message: "is required"})
	case n > message.MaxBodyLength:
		errs.Add(ValidationError{Field: "message", Message: "is too long"})
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	var (
		msg  *message.Message
		sent []*notification.Notification
	)

	err := e.store.Tx(ctx, func(ctx context.Context, tx store.Tx) error {
		msg, sent = nil, nil

		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		var recipient id.UserID
		switch sender {
		case b.ClientID:
			recipient = b.GuideID
		case b.GuideID:
			recipient = b.ClientID
		default:
			return ErrForbidden
		}

		now := e.clock()
		m := &message.Message{
			ID:        id.NewMessageID(),
			BookingID: b.ID,
			SenderID:  sender,
			Body:      body,
			CreatedAt: now,
		}
		if err := tx.InsertMessage(ctx, m); err != nil {
			return err
		}
		if _, err := store.Dispatcher(tx, now, &sent).Dispatch(ctx, notification.MessageReceived(recipient, b.ID, body)); err != nil {
			return err
		}

		msg = m
		return nil
	})
	if err != nil {
		return nil, WrapStore("send message", err)
	}

	e.plugins.EmitMessageSent(ctx, msg)
	e.announce(ctx, sent)

	return msg, nil
}

// ListMessages returns a booking's messages oldest first. When reader is not
// nil it must be the booking's client or guide.
func (e *Engine) ListMessages(ctx context.Context, bookingID id.BookingID, reader id.UserID) ([]*message.Message, error) {
	if bookingID.IsNil() {
		return nil, ValidationError{Field: "booking_id", Message: "is required"}
	}
	if !reader.IsNil() {
		b, err := e.store.GetBooking(ctx, bookingID)
		if err != nil {
			return nil, WrapStore("list messages", err)
		}
		if reader != b.ClientID && reader != b.GuideID {
			return nil, ErrForbidden
		}
	}
	list, err := e.store.ListMessages(ctx, bookingID)
	return list, WrapStore("list messages", err)
}
