package postgres

import (
	"time"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// ==================== Tour models ====================

type tourModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	GuideID        string    `gorm:"column:guide_id"`
	Title          string    `gorm:"column:title"`
	City           string    `gorm:"column:city"`
	PriceAmount    int64     `gorm:"column:price_amount"`
	PriceCurrency  string    `gorm:"column:price_currency"`
	MaxGuests      int       `gorm:"column:max_guests"`
	Status         string    `gorm:"column:status"`
	InstantBooking bool      `gorm:"column:instant_booking"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (tourModel) TableName() string { return "tourdesk_tours" }

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

// tourPatchColumns maps the set fields of p to column values.
func tourPatchColumns(p tour.Patch) map[string]any {
	cols := map[string]any{"updated_at": p.UpdatedAt}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.InstantBooking != nil {
		cols["instant_booking"] = *p.InstantBooking
	}
	if p.Price != nil {
		cols["price_amount"] = p.Price.Amount
		cols["price_currency"] = p.Price.Currency
	}
	if p.MaxGuests != nil {
		cols["max_guests"] = *p.MaxGuests
	}
	return cols
}

// ==================== Booking models ====================

type bookingModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	TourID         string     `gorm:"column:tour_id"`
	ClientID       string     `gorm:"column:client_id"`
	GuideID        string     `gorm:"column:guide_id"`
	BookingDate    types.Date `gorm:"column:booking_date;type:date"`
	GuestsCount    int        `gorm:"column:guests_count"`
	TotalAmount    int64      `gorm:"column:total_amount"`
	TotalCurrency  string     `gorm:"column:total_currency"`
	Status         string     `gorm:"column:status"`
	ClientName     string     `gorm:"column:client_name"`
	ClientContact  string     `gorm:"column:client_contact"`
	IdempotencyKey *string    `gorm:"column:idempotency_key"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "tourdesk_bookings" }

func toBookingModel(b *booking.Booking) *bookingModel {
	m := &bookingModel{
		ID:            b.ID.String(),
		TourID:        b.TourID.String(),
		ClientID:      b.ClientID.String(),
		GuideID:       b.GuideID.String(),
		BookingDate:   b.Date,
		GuestsCount:   b.GuestsCount,
		TotalAmount:   b.TotalPrice.Amount,
		TotalCurrency: b.TotalPrice.Currency,
		Status:        string(b.Status),
		ClientName:    b.ClientName,
		ClientContact: b.ClientContact,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	// NULL keeps the partial unique index from colliding on keyless bookings.
	if b.IdempotencyKey != "" {
		key := b.IdempotencyKey
		m.IdempotencyKey = &key
	}
	return m
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

	b := &booking.Booking{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            bookingID,
		TourID:        tourID,
		ClientID:      clientID,
		GuideID:       guideID,
		Date:          m.BookingDate,
		GuestsCount:   m.GuestsCount,
		TotalPrice:    types.Money{Amount: m.TotalAmount, Currency: m.TotalCurrency},
		Status:        booking.Status(m.Status),
		ClientName:    m.ClientName,
		ClientContact: m.ClientContact,
	}
	if m.IdempotencyKey != nil {
		b.IdempotencyKey = *m.IdempotencyKey
	}
	return b, nil
}

// seatRow is the projection ListSeats scans into.
type seatRow struct {
	BookingDate types.Date `gorm:"column:booking_date"`
	GuestsCount int        `gorm:"column:guests_count"`
	Status      string     `gorm:"column:status"`
}

func (r seatRow) seat() booking.Seat {
	return booking.Seat{Date: r.BookingDate, GuestsCount: r.GuestsCount, Status: booking.Status(r.Status)}
}

// ==================== Notification models ====================

type notificationModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id"`
	Type      string    `gorm:"column:type"`
	Title     string    `gorm:"column:title"`
	Message   string    `gorm:"column:message"`
	Link      string    `gorm:"column:link"`
	IsRead    bool      `gorm:"column:is_read"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (notificationModel) TableName() string { return "tourdesk_notifications" }

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
	ID        string    `gorm:"column:id;primaryKey"`
	BookingID string    `gorm:"column:booking_id"`
	SenderID  string    `gorm:"column:sender_id"`
	Body      string    `gorm:"column:body"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (messageModel) TableName() string { return "tourdesk_messages" }

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

// convertAll maps models through fn, stopping at the first error.
func convertAll[M any, T any](models []M, fn func(*M) (T, error)) ([]T, error) {
	out := make([]T, 0, len(models))
	for i := range models {
		v, err := fn(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
