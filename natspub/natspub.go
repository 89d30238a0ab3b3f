// Package natspub publishes committed booking events to NATS so other
// services (chat bots, mailers, dashboards) can react without polling.
//
// Subjects are "<prefix>.<resource>.<event>", for example
// "tourdesk.booking.created". Payloads are JSON Events.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/plugin"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                   = (*Publisher)(nil)
	_ plugin.OnShutdown               = (*Publisher)(nil)
	_ plugin.OnTourCreated            = (*Publisher)(nil)
	_ plugin.OnTourModerated          = (*Publisher)(nil)
	_ plugin.OnBookingCreated         = (*Publisher)(nil)
	_ plugin.OnBookingTransitioned    = (*Publisher)(nil)
	_ plugin.OnCapacityRejected       = (*Publisher)(nil)
	_ plugin.OnNotificationDispatched = (*Publisher)(nil)
	_ plugin.OnMessageSent            = (*Publisher)(nil)
)

// DefaultPrefix is the subject prefix used unless WithPrefix overrides it.
const DefaultPrefix = "tourdesk"

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON envelope of every published message.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// CapacityRejection is the payload of capacity.rejected events.
type CapacityRejection struct {
	TourID    id.TourID  `json:"tour_id"`
	Date      types.Date `json:"booking_date"`
	Requested int        `json:"requested"`
	Booked    int        `json:"booked"`
	Capacity  int        `json:"capacity"`
}

// Transition is the payload of booking.confirmed and booking.cancelled events.
type Transition struct {
	Booking *booking.Booking `json:"booking"`
	From    booking.Status   `json:"from"`
}

// Publisher is a plugin that forwards engine events to NATS.
type Publisher struct {
	conn   Conn
	owned  *nats.Conn
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithPrefix sets the subject prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) { p.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// New creates a Publisher on an existing connection. The caller keeps
// ownership of conn.
func New(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		prefix: DefaultPrefix,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials url and returns a Publisher that drains the connection on
// engine shutdown.
func Connect(url string, opts ...Option) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tourdesk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("natspub: connect %s: %w", url, err)
	}
	p := New(nc, opts...)
	p.owned = nc
	return p, nil
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "natspub" }

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	if p.owned == nil {
		return nil
	}
	return p.owned.Drain()
}

// OnTourCreated implements plugin.OnTourCreated.
func (p *Publisher) OnTourCreated(_ context.Context, t *tour.Tour) error {
	return p.publish("tour.created", t)
}

// OnTourModerated implements plugin.OnTourModerated.
func (p *Publisher) OnTourModerated(_ context.Context, t *tour.Tour, action tour.Action) error {
	switch action {
	case tour.ActionApprove:
		return p.publish("tour.approved", t)
	case tour.ActionReject:
		return p.publish("tour.rejected", t)
	}
	return nil
}

// OnBookingCreated implements plugin.OnBookingCreated.
func (p *Publisher) OnBookingCreated(_ context.Context, b *booking.Booking) error {
	return p.publish("booking.created", b)
}

// OnBookingTransitioned implements plugin.OnBookingTransitioned.
func (p *Publisher) OnBookingTransitioned(_ context.Context, b *booking.Booking, from booking.Status, action booking.Action) error {
	payload := Transition{Booking: b, From: from}
	switch action {
	case booking.ActionConfirm:
		return p.publish("booking.confirmed", payload)
	case booking.ActionCancel:
		return p.publish("booking.cancelled", payload)
	}
	return nil
}

// OnCapacityRejected implements plugin.OnCapacityRejected.
func (p *Publisher) OnCapacityRejected(_ context.Context, tourID id.TourID, date types.Date, requested, booked, capacity int) error {
	return p.publish("capacity.rejected", CapacityRejection{
		TourID:    tourID,
		Date:      date,
		Requested: requested,
		Booked:    booked,
		Capacity:  capacity,
	})
}

// OnNotificationDispatched implements plugin.OnNotificationDispatched.
// Each recipient gets its own subject so a bot can subscribe per user.
func (p *Publisher) OnNotificationDispatched(_ context.Context, n *notification.Notification) error {
	return p.publish("notification."+n.UserID.String(), n)
}

// OnMessageSent implements plugin.OnMessageSent.
func (p *Publisher) OnMessageSent(_ context.Context, m *message.Message) error {
	return p.publish("message.sent", m)
}

// Subject returns the full subject for an event type.
func (p *Publisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *Publisher) publish(eventType string, data any) error {
	payload, err := json.Marshal(Event{
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("natspub: encode %s: %w", eventType, err)
	}

	subject := p.Subject(eventType)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("natspub: publish failed", "subject", subject, "error", err)
		return fmt.Errorf("natspub: publish %s: %w", subject, err)
	}
	return nil
}
