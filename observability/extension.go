// Package observability provides a metrics plugin that counts booking,
// tour and notification events through a MetricFactory.
package observability

import (
	"context"
	"strings"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/plugin"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                   = (*MetricsExtension)(nil)
	_ plugin.OnInit                   = (*MetricsExtension)(nil)
	_ plugin.OnTourCreated            = (*MetricsExtension)(nil)
	_ plugin.OnTourModerated          = (*MetricsExtension)(nil)
	_ plugin.OnBookingCreated         = (*MetricsExtension)(nil)
	_ plugin.OnBookingTransitioned    = (*MetricsExtension)(nil)
	_ plugin.OnCapacityRejected       = (*MetricsExtension)(nil)
	_ plugin.OnNotificationDispatched = (*MetricsExtension)(nil)
	_ plugin.OnMessageSent            = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a plugin to track booking metrics automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Tour metrics
	TourCreated  Counter
	TourApproved Counter
	TourRejected Counter

	// Booking metrics
	BookingCreated   Counter
	BookingInstant   Counter
	BookingConfirmed Counter
	BookingCancelled Counter
	BookingGuests    Histogram
	BookingTotal     Histogram

	// Capacity metrics
	CapacityRejected  Counter
	CapacityRequested Histogram

	// Messaging metrics
	NotificationDispatched Counter
	MessageSent            Counter
	MessageLength          Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TourCreated:  factory.Counter("tourdesk.tour.created"),
		TourApproved: factory.Counter("tourdesk.tour.approved"),
		TourRejected: factory.Counter("tourdesk.tour.rejected"),

		BookingCreated:   factory.Counter("tourdesk.booking.created"),
		BookingInstant:   factory.Counter("tourdesk.booking.instant"),
		BookingConfirmed: factory.Counter("tourdesk.booking.confirmed"),
		BookingCancelled: factory.Counter("tourdesk.booking.cancelled"),
		BookingGuests:    factory.Histogram("tourdesk.booking.guests"),
		BookingTotal:     factory.Histogram("tourdesk.booking.total_amount"),

		CapacityRejected:  factory.Counter("tourdesk.capacity.rejected"),
		CapacityRequested: factory.Histogram("tourdesk.capacity.rejected_guests"),

		NotificationDispatched: factory.Counter("tourdesk.notification.dispatched"),
		MessageSent:            factory.Counter("tourdesk.message.sent"),
		MessageLength:          factory.Histogram("tourdesk.message.length"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Tour hooks
// ──────────────────────────────────────────────────

// OnTourCreated implements plugin.OnTourCreated.
func (m *MetricsExtension) OnTourCreated(_ context.Context, _ *tour.Tour) error {
	m.TourCreated.Inc()
	return nil
}

// OnTourModerated implements plugin.OnTourModerated.
func (m *MetricsExtension) OnTourModerated(_ context.Context, _ *tour.Tour, action tour.Action) error {
	switch action {
	case tour.ActionApprove:
		m.TourApproved.Inc()
	case tour.ActionReject:
		m.TourRejected.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Booking hooks
// ──────────────────────────────────────────────────

// OnBookingCreated implements plugin.OnBookingCreated.
func (m *MetricsExtension) OnBookingCreated(_ context.Context, b *booking.Booking) error {
	m.BookingCreated.Inc()
	if b.Status == booking.StatusConfirmed {
		m.BookingInstant.Inc()
	}
	m.BookingGuests.Observe(float64(b.GuestsCount))
	m.BookingTotal.Observe(float64(b.TotalPrice.Amount))
	return nil
}

// OnBookingTransitioned implements plugin.OnBookingTransitioned.
func (m *MetricsExtension) OnBookingTransitioned(_ context.Context, _ *booking.Booking, _ booking.Status, action booking.Action) error {
	switch action {
	case booking.ActionConfirm:
		m.BookingConfirmed.Inc()
	case booking.ActionCancel:
		m.BookingCancelled.Inc()
	}
	return nil
}

// OnCapacityRejected implements plugin.OnCapacityRejected.
func (m *MetricsExtension) OnCapacityRejected(_ context.Context, _ id.TourID, _ types.Date, requested, _, _ int) error {
	m.CapacityRejected.Inc()
	m.CapacityRequested.Observe(float64(requested))
	return nil
}

// ──────────────────────────────────────────────────
// Messaging hooks
// ──────────────────────────────────────────────────

// OnNotificationDispatched implements plugin.OnNotificationDispatched.
func (m *MetricsExtension) OnNotificationDispatched(_ context.Context, _ *notification.Notification) error {
	m.NotificationDispatched.Inc()
	return nil
}

// OnMessageSent implements plugin.OnMessageSent.
func (m *MetricsExtension) OnMessageSent(_ context.Context, msg *message.Message) error {
	m.MessageSent.Inc()
	m.MessageLength.Observe(float64(len([]rune(msg.Body))))
	return nil
}

// metricName turns a dotted metric name into a Prometheus-safe one.
func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
