package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/types"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []published
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func TestBookingEventsSubjects(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	p := New(conn)

	b := &booking.Booking{
		ID:          id.NewBookingID(),
		Date:        types.NewDate(2026, 6, 1),
		GuestsCount: 2,
		Status:      booking.StatusCancelled,
	}
	_ = p.OnBookingCreated(ctx, b)
	_ = p.OnBookingTransitioned(ctx, b, booking.StatusConfirmed, booking.ActionCancel)

	want := []string{"tourdesk.booking.created", "tourdesk.booking.cancelled"}
	if len(conn.msgs) != len(want) {
		t.Fatalf("got %d messages", len(conn.msgs))
	}
	for i, s := range want {
		if conn.msgs[i].subject != s {
			t.Errorf("message %d: got %s, want %s", i, conn.msgs[i].subject, s)
		}
	}

	var evt struct {
		Type string `json:"type"`
		Data struct {
			From    string `json:"from"`
			Booking struct {
				Date string `json:"booking_date"`
			} `json:"booking"`
		} `json:"data"`
	}
	if err := json.Unmarshal(conn.msgs[1].data, &evt); err != nil {
		t.Fatal(err)
	}
	if evt.Type != "booking.cancelled" || evt.Data.From != "confirmed" || evt.Data.Booking.Date != "2026-06-01" {
		t.Errorf("payload: %+v", evt)
	}
}

func TestNotificationSubjectPerUser(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn, WithPrefix("marketplace"))

	user := id.NewUserID()
	_ = p.OnNotificationDispatched(context.Background(), &notification.Notification{ID: id.NewNotificationID(), UserID: user})

	if got, want := conn.msgs[0].subject, "marketplace.notification."+user.String(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestPublishErrorIsReturned(t *testing.T) {
	conn := &fakeConn{err: errors.New("disconnected")}
	p := New(conn, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	err := p.OnCapacityRejected(context.Background(), id.NewTourID(), types.NewDate(2026, 6, 1), 1, 4, 4)
	if err == nil {
		t.Error("publish error swallowed")
	}
}

func TestShutdownWithoutOwnedConn(t *testing.T) {
	if err := New(&fakeConn{}).OnShutdown(context.Background()); err != nil {
		t.Errorf("got %v", err)
	}
}
