package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// ==================== Tour models ====================

type tourModel struct {
	ID             string    `bson:"_id"`
	GuideID        string    `bson:"guide_id"`
	Title          string    `bson:"title"`
	City           string    `bson:"city,omitempty"`
	PriceAmount    int64     `bson:"price_amount"`
	PriceCurrency  string    `bson:"price_currency"`
	MaxGuests      int       `bson:"max_guests"`
	Status         string    `bson:"status"`
	InstantBooking bool      `bson:"instant_booking"`
	LockVersion    int64     `bson:"lock_version"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

// tourPatchFields is the $set document for the set fields of p.
func tourPatchFields(p tour.Patch) bson.M {
	set := bson.M{"updated_at": p.UpdatedAt}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.InstantBooking != nil {
		set["instant_booking"] = *p.InstantBooking
	}
	if p.Price != nil {
		set["price_amount"] = p.Price.Amount
		set["price_currency"] = p.Price.Currency
	}
	if p.MaxGuests != nil {
		set["max_guests"] = *p.MaxGuests
	}
	return set
}

func toTourModel(t *tour.Tour) *tourModel {
	return &tourModel{
		ID:             t.ID.String(),
		GuideID:        t.GuideID.String(),
		Title:          t.Title,
		City:           t.City,
		PriceAmount:    t.Price.Amount,
		PriceCurrency:  t.Price.Currency,
		MaxGuests:      t.MaxGuests,
		Status:         string(t.Status),
		InstantBooking: t.InstantBooking,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func fromTourModel(m *tourModel) (*tour.Tour, error) {
	tourID, err := id.ParseTourID(m.ID)
	if err != nil {
		return nil, err
	}
	guideID, err := id.ParseUserID(m.GuideID)
	if err != nil {
		return nil, err
	}

	return &tour.Tour{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             tourID,
		GuideID:        guideID,
		Title:          m.Title,
		City:           m.City,
		Price:          types.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		MaxGuests:      m.MaxGuests,
		Status:         tour.Status(m.Status),
		InstantBooking: m.InstantBooking,
	}, nil
}

// ==================== Booking models ====================

// bookingModel stores the date as "2006-01-02" so string order is date order.
type bookingModel struct {
	ID             string    `bson:"_id"`
	TourID         string    `bson:"tour_id"`
	ClientID       string    `bson:"client_id"`
	GuideID        string    `bson:"guide_id"`
	BookingDate    string    `bson:"booking_date"`
	GuestsCount    int       `bson:"guests_count"`
	TotalAmount    int64     `bson:"total_amount"`
	TotalCurrency  string    `bson:"total_currency"`
	Status         string    `bson:"status"`
	ClientName     string    `bson:"client_name"`
	ClientContact  string    `bson:"client_contact,omitempty"`
	IdempotencyKey string    `bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toBookingModel(b *booking.Booking) *bookingModel {
	return &bookingModel{
		ID:             b.ID.String(),
		TourID:         b.TourID.String(),
		ClientID:       b.ClientID.String(),
		GuideID:        b.GuideID.String(),
		BookingDate:    b.Date.String(),
		GuestsCount:    b.GuestsCount,
		TotalAmount:    b.TotalPrice.Amount,
		TotalCurrency:  b.TotalPrice.Currency,
		Status:         string(b.Status),
		ClientName:     b.ClientName,
		ClientContact:  b.ClientContact,
		IdempotencyKey: b.IdempotencyKey,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func fromBookingModel(m *bookingModel) (*booking.Booking, error) {
	bookingID, err := id.ParseBookingID(m.ID)
	if err != nil {
		return nil, err
	}
	tourID, err := id.ParseTourID(m.TourID)
	if err != nil {
		return nil, err
	}
	clientID, err := id.ParseUserID(m.ClientID)
	if err != nil {
		return nil, err
	}
	guideID, err := id.ParseUserID(m.GuideID)
	if err != nil {
		return nil, err
	}
	date, err := types.ParseDate(m.BookingDate)
	if err != nil {
		return nil, err
	}

	return &booking.Booking{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             bookingID,
		TourID:         tourID,
		ClientID:       clientID,
		GuideID:        guideID,
		Date:           date,
		GuestsCount:    m.GuestsCount,
		TotalPrice:     types.Money{Amount: m.TotalAmount, Currency: m.TotalCurrency},
		Status:         booking.Status(m.Status),
		ClientName:     m.ClientName,
		ClientContact:  m.ClientContact,
		IdempotencyKey: m.IdempotencyKey,
	}, nil
}

type seatModel struct {
	BookingDate string `bson:"booking_date"`
	GuestsCount int    `bson:"guests_count"`
	Status      string `bson:"status"`
}

func (m seatModel) seat() (booking.Seat, error) {
	d, err := types.ParseDate(m.BookingDate)
	if err != nil {
		return booking.Seat{}, err
	}
	return booking.Seat{Date: d, GuestsCount: m.GuestsCount, Status: booking.Status(m.Status)}, nil
}

// ==================== Notification models ====================

type notificationModel struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Type      string    `bson:"type"`
	Title     string    `bson:"title"`
	Message   string    `bson:"message"`
	Link      string    `bson:"link,omitempty"`
	IsRead    bool      `bson:"is_read"`
	CreatedAt time.Time `bson:"created_at"`
}

func toNotificationModel(n *notification.Notification) *notificationModel {
	return &notificationModel{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func fromNotificationModel(m *notificationModel) (*notification.Notification, error) {
	ntfID, err := id.ParseNotificationID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	return &notification.Notification{
		ID:        ntfID,
		UserID:    userID,
		Type:      notification.Type(m.Type),
		Title:     m.Title,
		Message:   m.Message,
		Link:      m.Link,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ==================== Message models ====================

type messageModel struct {
	ID        string    `bson:"_id"`
	BookingID string    `bson:"booking_id"`
	SenderID  string    `bson:"sender_id"`
	Body      string    `bson:"body"`
	CreatedAt time.Time `bson:"created_at"`
}

func toMessageModel(m *message.Message) *messageModel {
	return &messageModel{
		ID:        m.ID.String(),
		BookingID: m.BookingID.String(),
		SenderID:  m.SenderID.String(),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func fromMessageModel(m *messageModel) (*message.Message, error) {
	msgID, err := id.ParseMessageID(m.ID)
	if err != nil {
		return nil, err
	}
	bookingID, err := id.ParseBookingID(m.BookingID)
	if err != nil {
		return nil, err
	}
	senderID, err := id.ParseUserID(m.SenderID)
	if err != nil {
		return nil, err
	}

	return &message.Message{
		ID:        msgID,
		BookingID: bookingID,
		SenderID:  senderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}, nil
}
