package notification

import (
	"fmt"

	"github.com/xraph/tourdesk/id"
)

// Links the frontends route notifications to.
const (
	LinkGuideDashboard  = "/guide"
	LinkClientDashboard = "/client"
)

// MessagePreviewLength is the number of runes of a chat message copied
// into the notification body.
const MessagePreviewLength = 100

// BookingCreatedForGuide tells the guide a client booked one of their tours.
func BookingCreatedForGuide(guide id.UserID, clientName, date string, confirmed bool) Draft {
	title := "New booking"
	if confirmed {
		title = "Booking confirmed"
	}
	return Draft{
		Recipient: guide,
		Type:      TypeBooking,
		Title:     title,
		Message:   fmt.Sprintf("%s booked a tour for %s", clientName, date),
		Link:      LinkGuideDashboard,
	}
}

// BookingCreatedForClient acknowledges a new booking to the client.
func BookingCreatedForClient(client id.UserID, confirmed bool) Draft {
	msg := "Your booking is awaiting confirmation"
	if confirmed {
		msg = "Your booking is confirmed"
	}
	return Draft{
		Recipient: client,
		Type:      TypeBooking,
		Title:     "Booking created",
		Message:   msg,
		Link:      LinkClientDashboard,
	}
}

// BookingConfirmed tells the client the guide accepted the booking.
func BookingConfirmed(client id.UserID) Draft {
	return Draft{
		Recipient: client,
		Type:      TypeBooking,
		Title:     "Booking confirmed",
		Message:   "The guide confirmed your booking",
		Link:      LinkClientDashboard,
	}
}

// BookingCancelled tells the client the guide cancelled the booking.
func BookingCancelled(client id.UserID) Draft {
	return Draft{
		Recipient: client,
		Type:      TypeBooking,
		Title:     "Booking cancelled",
		Message:   "The guide cancelled your booking",
		Link:      LinkClientDashboard,
	}
}

// MessageReceived tells the counterpart of a booking chat about a new message.
func MessageReceived(recipient id.UserID, bookingID id.BookingID, body string) Draft {
	return Draft{
		Recipient: recipient,
		Type:      TypeMessage,
		Title:     "New message",
		Message:   Preview(body, MessagePreviewLength),
		Link:      "/booking/" + bookingID.String(),
	}
}

// Preview truncates s to at most n runes.
func Preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
