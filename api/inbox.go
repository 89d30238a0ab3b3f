package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
)

func (h *Handler) listNotifications(c echo.Context) error {
	userID, err := parseID("user_id", c.QueryParam("user_id"), id.ParseUserID)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	inbox, err := h.engine.Inbox(c.Request().Context(), userID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inbox)
}

type markNotificationsRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	NotificationID string `json:"notification_id" validate:"required_without=MarkAll"`
	MarkAll        bool   `json:"mark_all"`
}

func (h *Handler) markNotifications(c echo.Context) error {
	var req markNotificationsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	userID, err := parseID("user_id", req.UserID, id.ParseUserID)
	if err != nil {
		return err
	}

	if req.MarkAll {
		if _, err := h.engine.MarkAllRead(ctx, userID); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}

	notificationID, err := parseID("notification_id", req.NotificationID, id.ParseNotificationID)
	if err != nil {
		return err
	}
	if err := h.engine.MarkRead(ctx, userID, notificationID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

type sendMessageRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	SenderID  string `json:"sender_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

func (h *Handler) sendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	bookingID, err := parseID("booking_id", req.BookingID, id.ParseBookingID)
	if err != nil {
		return err
	}
	senderID, err := parseID("sender_id", req.SenderID, id.ParseUserID)
	if err != nil {
		return err
	}

	m, err := h.engine.SendMessage(c.Request().Context(), bookingID, senderID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

type messagesResponse struct {
	Messages []*message.Message `json:"messages"`
}

func (h *Handler) listMessages(c echo.Context) error {
	bookingID, err := parseID("booking_id", c.QueryParam("booking_id"), id.ParseBookingID)
	if err != nil {
		return err
	}
	reader, err := parseOptionalID("user_id", c.QueryParam("user_id"), id.ParseUserID)
	if err != nil {
		return err
	}

	list, err := h.engine.ListMessages(c.Request().Context(), bookingID, reader)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*message.Message{}
	}
	return c.JSON(http.StatusOK, messagesResponse{Messages: list})
}
