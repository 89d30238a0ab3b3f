package audithook

// Action constants for audit events.
const (
	// Tour actions
	ActionTourCreated  = "tour.created"
	ActionTourApproved = "tour.approved"
	ActionTourRejected = "tour.rejected"

	// Booking actions
	ActionBookingCreated   = "booking.created"
	ActionBookingConfirmed = "booking.confirmed"
	ActionBookingCancelled = "booking.cancelled"
	ActionCapacityRejected = "capacity.rejected"

	// Messaging actions
	ActionMessageSent = "message.sent"
)

// Resource constants for audit events.
const (
	ResourceTour    = "tour"
	ResourceBooking = "booking"
	ResourceMessage = "message"
)

// Category constants for audit events.
const (
	CategoryCatalog   = "catalog"
	CategoryBooking   = "booking"
	CategoryCapacity  = "capacity"
	CategoryMessaging = "messaging"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
