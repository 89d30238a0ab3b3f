package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

type createTourRequest struct {
	GuideID        string      `json:"guide_id" validate:"required"`
	Title          string      `json:"title" validate:"required,max=200"`
	City           string      `json:"city" validate:"omitempty,max=100"`
	Price          types.Money `json:"price"`
	MaxGuests      int         `json:"max_guests" validate:"gte=0,lte=1000"`
	InstantBooking bool        `json:"instant_booking"`
}

func (h *Handler) createTour(c echo.Context) error {
	var req createTourRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	guideID, err := parseID("guide_id", req.GuideID, id.ParseUserID)
	if err != nil {
		return err
	}

	t, err := h.engine.CreateTour(c.Request().Context(), tourdesk.TourInput{
		GuideID:        guideID,
		Title:          req.Title,
		City:           req.City,
		Price:          req.Price,
		MaxGuests:      req.MaxGuests,
		InstantBooking: req.InstantBooking,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) getTour(c echo.Context) error {
	tourID, err := parseID("id", c.Param("id"), id.ParseTourID)
	if err != nil {
		return err
	}
	t, err := h.engine.GetTour(c.Request().Context(), tourID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

type toursResponse struct {
	Tours []*tour.Tour `json:"tours"`
}

func (h *Handler) listTours(c echo.Context) error {
	guideID, err := parseOptionalID("guide_id", c.QueryParam("guide_id"), id.ParseUserID)
	if err != nil {
		return err
	}
	limit, offset := pageParams(c)
	list, err := h.engine.ListTours(c.Request().Context(), tour.ListOpts{
		GuideID: guideID,
		Status:  tour.Status(c.QueryParam("status")),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return err
	}
	if list == nil {
		list = []*tour.Tour{}
	}
	return c.JSON(http.StatusOK, toursResponse{Tours: list})
}

type moderateTourRequest struct {
	TourID string `json:"tour_id" validate:"required"`
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

func (h *Handler) moderateTour(c echo.Context) error {
	var req moderateTourRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tourID, err := parseID("tour_id", req.TourID, id.ParseTourID)
	if err != nil {
		return err
	}
	action, err := tour.ParseAction(req.Action)
	if err != nil {
		return tourdesk.ValidationError{Field: "action", Message: "must be approve or reject"}
	}

	t, err := h.engine.ModerateTour(c.Request().Context(), tourID, action)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

type updatePriceRequest struct {
	Price types.Money `json:"price"`
}

func (h *Handler) updateTourPrice(c echo.Context) error {
	tourID, err := parseID("id", c.Param("id"), id.ParseTourID)
	if err != nil {
		return err
	}
	var req updatePriceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	t, err := h.engine.UpdateTourPrice(c.Request().Context(), tourID, req.Price)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

type updateCapacityRequest struct {
	MaxGuests int `json:"max_guests" validate:"required,min=1,max=1000"`
}

func (h *Handler) updateTourCapacity(c echo.Context) error {
	tourID, err := parseID("id", c.Param("id"), id.ParseTourID)
	if err != nil {
		return err
	}
	var req updateCapacityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	t, err := h.engine.UpdateTourCapacity(c.Request().Context(), tourID, req.MaxGuests)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}
