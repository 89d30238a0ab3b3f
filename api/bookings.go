package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/types"
)

// IdempotencyHeader carries the client-chosen key of a booking request.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses that return an earlier booking.
const ReplayedHeader = "Idempotent-Replayed"

type createBookingRequest struct {
	TourID         string `json:"tour_id" validate:"required"`
	ClientID       string `json:"client_id" validate:"required"`
	BookingDate    string `json:"booking_date" validate:"required,datetime=2006-01-02"`
	GuestsCount    *int   `json:"guests_count" validate:"omitempty,min=1,max=100"`
	ClientName     string `json:"client_name" validate:"required,max=200"`
	ClientTelegram string `json:"client_telegram" validate:"omitempty,max=100"`
}

type createBookingResponse struct {
	ID         id.BookingID   `json:"id"`
	Status     booking.Status `json:"status"`
	TotalPrice types.Money    `json:"total_price"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (h *Handler) createBooking(c echo.Context) error {
	var req createBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tourID, err := parseID("tour_id", req.TourID, id.ParseTourID)
	if err != nil {
		return err
	}
	clientID, err := parseID("client_id", req.ClientID, id.ParseUserID)
	if err != nil {
		return err
	}
	date, err := types.ParseDate(req.BookingDate)
	if err != nil {
		return tourdesk.ValidationError{Field: "booking_date", Message: "must be YYYY-MM-DD"}
	}
	guests := 1
	if req.GuestsCount != nil {
		guests = *req.GuestsCount
	}

	res, err := h.engine.CreateBooking(c.Request().Context(), tourdesk.BookingRequest{
		TourID:         tourID,
		ClientID:       clientID,
		Date:           date,
		GuestsCount:    guests,
		ClientName:     req.ClientName,
		ClientContact:  req.ClientTelegram,
		IdempotencyKey: c.Request().Header.Get(IdempotencyHeader),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
		c.Response().Header().Set(ReplayedHeader, "true")
	}
	return c.JSON(status, createBookingResponse{
		ID:         res.Booking.ID,
		Status:     res.Booking.Status,
		TotalPrice: res.Booking.TotalPrice,
		CreatedAt:  res.Booking.CreatedAt,
	})
}

type transitionBookingRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	Action    string `json:"action" validate:"required,oneof=confirm cancel"`
	ActorID   string `json:"actor_id"`
}

func (h *Handler) transitionBooking(c echo.Context) error {
	var req transitionBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	bookingID, err := parseID("booking_id", req.BookingID, id.ParseBookingID)
	if err != nil {
		return err
	}
	actor, err := parseOptionalID("actor_id", req.ActorID, id.ParseUserID)
	if err != nil {
		return err
	}
	action, err := booking.ParseAction(req.Action)
	if err != nil {
		return tourdesk.ValidationError{Field: "action", Message: "must be confirm or cancel"}
	}

	if _, err := h.engine.TransitionBooking(c.Request().Context(), bookingID, action, actor); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

type bookingsResponse struct {
	Bookings []*booking.Booking `json:"bookings"`
}

func (h *Handler) listBookings(c echo.Context) error {
	ctx := c.Request().Context()
	limit, offset := pageParams(c)

	var (
		list []*booking.Booking
		err  error
	)
	switch {
	case c.QueryParam("client_id") != "":
		clientID, perr := parseID("client_id", c.QueryParam("client_id"), id.ParseUserID)
		if perr != nil {
			return perr
		}
		list, err = h.engine.ListClientBookings(ctx, clientID, limit, offset)
	case c.QueryParam("guide_id") != "":
		guideID, perr := parseID("guide_id", c.QueryParam("guide_id"), id.ParseUserID)
		if perr != nil {
			return perr
		}
		list, err = h.engine.ListGuideBookings(ctx, guideID, booking.Status(c.QueryParam("status")), limit, offset)
	default:
		return tourdesk.ValidationError{Field: "client_id", Message: "client_id or guide_id is required"}
	}
	if err != nil {
		return err
	}
	if list == nil {
		list = []*booking.Booking{}
	}
	return c.JSON(http.StatusOK, bookingsResponse{Bookings: list})
}

func (h *Handler) getBooking(c echo.Context) error {
	bookingID, err := parseID("id", c.Param("id"), id.ParseBookingID)
	if err != nil {
		return err
	}
	b, err := h.engine.GetBooking(c.Request().Context(), bookingID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

type availabilityResponse struct {
	TourID       id.TourID          `json:"tour_id"`
	MaxGuests    int                `json:"max_guests"`
	Availability map[types.Date]int `json:"availability"`
}

// getAvailability answers with every booked date from today on. With from
// and to, each date of the range is listed, including free ones.
func (h *Handler) getAvailability(c echo.Context) error {
	ctx := c.Request().Context()
	tourID, err := parseID("tour_id", c.QueryParam("tour_id"), id.ParseTourID)
	if err != nil {
		return err
	}

	fromRaw, toRaw := c.QueryParam("from"), c.QueryParam("to")
	if fromRaw == "" && toRaw == "" {
		snap, err := h.engine.Availability(ctx, tourID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, availabilityResponse{TourID: snap.TourID, MaxGuests: snap.MaxGuests, Availability: snap.Remaining})
	}

	from, err := types.ParseDate(fromRaw)
	if err != nil {
		return tourdesk.ValidationError{Field: "from", Message: "must be YYYY-MM-DD"}
	}
	to, err := types.ParseDate(toRaw)
	if err != nil {
		return tourdesk.ValidationError{Field: "to", Message: "must be YYYY-MM-DD"}
	}
	snap, err := h.engine.AvailabilityRange(ctx, tourID, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, availabilityResponse{TourID: snap.TourID, MaxGuests: snap.MaxGuests, Availability: snap.Remaining})
}

// pageParams reads limit and offset. Bad, negative or missing values become
// zero and the engine applies its defaults.
func pageParams(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return max(limit, 0), max(offset, 0)
}
