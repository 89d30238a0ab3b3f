// Package audithook bridges booking lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/plugin"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnTourCreated         = (*Extension)(nil)
	_ plugin.OnTourModerated       = (*Extension)(nil)
	_ plugin.OnBookingCreated      = (*Extension)(nil)
	_ plugin.OnBookingTransitioned = (*Extension)(nil)
	_ plugin.OnCapacityRejected    = (*Extension)(nil)
	_ plugin.OnMessageSent         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges booking lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	filter   filter
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Tour hooks
// ──────────────────────────────────────────────────

// OnTourCreated implements plugin.OnTourCreated.
func (e *Extension) OnTourCreated(ctx context.Context, t *tour.Tour) error {
	return e.record(ctx, ActionTourCreated, SeverityInfo, OutcomeSuccess,
		ResourceTour, t.ID.String(), CategoryCatalog, nil,
		"guide_id", t.GuideID.String(),
		"max_guests", t.MaxGuests,
		"price", t.Price.String(),
	)
}

// OnTourModerated implements plugin.OnTourModerated.
func (e *Extension) OnTourModerated(ctx context.Context, t *tour.Tour, action tour.Action) error {
	var auditAction string
	switch action {
	case tour.ActionApprove:
		auditAction = ActionTourApproved
	case tour.ActionReject:
		auditAction = ActionTourRejected
	default:
		return nil
	}
	return e.record(ctx, auditAction, SeverityInfo, OutcomeSuccess,
		ResourceTour, t.ID.String(), CategoryCatalog, nil,
		"status", string(t.Status),
		"instant_booking", t.InstantBooking,
	)
}

// ──────────────────────────────────────────────────
// Booking hooks
// ──────────────────────────────────────────────────

// OnBookingCreated implements plugin.OnBookingCreated.
func (e *Extension) OnBookingCreated(ctx context.Context, b *booking.Booking) error {
	return e.record(ctx, ActionBookingCreated, SeverityInfo, OutcomeSuccess,
		ResourceBooking, b.ID.String(), CategoryBooking, nil,
		"tour_id", b.TourID.String(),
		"client_id", b.ClientID.String(),
		"booking_date", b.Date.String(),
		"guests_count", b.GuestsCount,
		"total_price", b.TotalPrice.String(),
		"status", string(b.Status),
	)
}

// OnBookingTransitioned implements plugin.OnBookingTransitioned.
func (e *Extension) OnBookingTransitioned(ctx context.Context, b *booking.Booking, from booking.Status, action booking.Action) error {
	var auditAction string
	switch action {
	case booking.ActionConfirm:
		auditAction = ActionBookingConfirmed
	case booking.ActionCancel:
		auditAction = ActionBookingCancelled
	default:
		return nil
	}
	return e.record(ctx, auditAction, SeverityInfo, OutcomeSuccess,
		ResourceBooking, b.ID.String(), CategoryBooking, nil,
		"from", string(from),
		"to", string(b.Status),
		"guide_id", b.GuideID.String(),
	)
}

// OnCapacityRejected implements plugin.OnCapacityRejected.
func (e *Extension) OnCapacityRejected(ctx context.Context, tourID id.TourID, date types.Date, requested, booked, capacity int) error {
	return e.record(ctx, ActionCapacityRejected, SeverityWarning, OutcomeFailure,
		ResourceTour, tourID.String(), CategoryCapacity,
		fmt.Errorf("%d guests requested, %d of %d booked", requested, booked, capacity),
		"booking_date", date.String(),
		"requested", requested,
		"booked", booked,
		"capacity", capacity,
	)
}

// ──────────────────────────────────────────────────
// Messaging hooks
// ──────────────────────────────────────────────────

// OnMessageSent implements plugin.OnMessageSent. The body is not recorded.
func (e *Extension) OnMessageSent(ctx context.Context, m *message.Message) error {
	return e.record(ctx, ActionMessageSent, SeverityInfo, OutcomeSuccess,
		ResourceMessage, m.ID.String(), CategoryMessaging, nil,
		"booking_id", m.BookingID.String(),
		"sender_id", m.SenderID.String(),
	)
}

// record builds and sends an audit event if the filter lets it through.
// Recorder failures are logged, never returned, so auditing cannot fail a
// booking operation.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if !e.filter.allows(action, severity) {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
