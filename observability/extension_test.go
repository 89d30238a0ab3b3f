package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

func TestMetricsExtensionCountsBookings(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := NewMetricsExtension(NewPrometheusFactory(reg))

	b := &booking.Booking{GuestsCount: 3, TotalPrice: types.RUB(300000), Status: booking.StatusConfirmed}
	_ = m.OnBookingCreated(ctx, b)
	_ = m.OnBookingCreated(ctx, &booking.Booking{GuestsCount: 1, Status: booking.StatusPending})
	_ = m.OnBookingTransitioned(ctx, b, booking.StatusConfirmed, booking.ActionCancel)
	_ = m.OnCapacityRejected(ctx, id.NewTourID(), types.NewDate(2026, 6, 1), 2, 4, 4)
	_ = m.OnTourModerated(ctx, &tour.Tour{}, tour.ActionReject)

	tests := []struct {
		name string
		c    Counter
		want float64
	}{
		{"created", m.BookingCreated, 2},
		{"instant", m.BookingInstant, 1},
		{"cancelled", m.BookingCancelled, 1},
		{"confirmed", m.BookingConfirmed, 0},
		{"capacity rejected", m.CapacityRejected, 1},
		{"tour rejected", m.TourRejected, 1},
		{"tour approved", m.TourApproved, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testutil.ToFloat64(tt.c.(prometheus.Counter))
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg)

	a := f.Counter("tourdesk.booking.created")
	b := f.Counter("tourdesk.booking.created")
	a.Inc()
	b.Inc()
	if got := testutil.ToFloat64(a.(prometheus.Counter)); got != 2 {
		t.Errorf("got %v, want 2", got)
	}

	// A second factory on the same registry picks up the existing collector.
	c := NewPrometheusFactory(reg).Counter("tourdesk.booking.created")
	c.Inc()
	if got := testutil.ToFloat64(a.(prometheus.Counter)); got != 3 {
		t.Errorf("shared collector: got %v, want 3", got)
	}
}

func TestMetricName(t *testing.T) {
	if got := metricName("tourdesk.booking.total-amount"); got != "tourdesk_booking_total_amount" {
		t.Errorf("got %s", got)
	}
}
