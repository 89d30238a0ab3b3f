// Package api exposes the booking engine over HTTP with echo.
//
// Request bodies are validated with go-playground/validator before they
// reach the engine. Engine errors are mapped to status codes by
// ErrorHandler, so handlers simply return them.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/id"
)

// Handler serves the booking API.
type Handler struct {
	engine   *tourdesk.Engine
	logger   *slog.Logger
	validate *validator.Validate
	basePath string
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for unexpected errors.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithBasePath mounts the routes under prefix in NewServer.
func WithBasePath(prefix string) Option {
	return func(h *Handler) { h.basePath = strings.TrimSuffix(prefix, "/") }
}

// New creates a Handler for engine.
func New(engine *tourdesk.Engine, opts ...Option) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	h := &Handler{
		engine:   engine,
		logger:   slog.Default(),
		validate: v,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router is the subset of *echo.Echo and *echo.Group used by Register.
type Router interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Register mounts every route on r.
func (h *Handler) Register(r Router) {
	r.GET("/healthz", h.health)

	r.GET("/availability", h.getAvailability)

	r.POST("/bookings", h.createBooking)
	r.PUT("/bookings", h.transitionBooking)
	r.GET("/bookings", h.listBookings)
	r.GET("/bookings/:id", h.getBooking)

	r.GET("/notifications", h.listNotifications)
	r.PUT("/notifications", h.markNotifications)

	r.POST("/messages", h.sendMessage)
	r.GET("/messages", h.listMessages)

	r.POST("/tours", h.createTour)
	r.GET("/tours", h.listTours)
	r.GET("/tours/:id", h.getTour)
	r.PUT("/tours/moderation", h.moderateTour)
	r.PUT("/tours/:id/price", h.updateTourPrice)
	r.PUT("/tours/:id/capacity", h.updateTourCapacity)
}

// NewServer returns an echo instance with the validator, error handler and
// routes installed. A panicking handler answers 500 instead of killing the
// connection.
func NewServer(engine *tourdesk.Engine, opts ...Option) *echo.Echo {
	h := New(engine, opts...)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = h
	e.HTTPErrorHandler = h.ErrorHandler
	e.Use(middleware.Recover())
	if h.basePath == "" {
		h.Register(e)
	} else {
		h.Register(e.Group(h.basePath))
	}
	return e
}

// Validate implements echo.Validator.
func (h *Handler) Validate(i any) error {
	return h.validate.Struct(i)
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorHandler implements echo.HTTPErrorHandler.
func (h *Handler) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := h.classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("api: request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		h.logger.Warn("api: write error response", "error", err)
	}
}

func (h *Handler) classify(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrorResponse{Error: msg}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, ErrorResponse{Error: "invalid request", Fields: fields}
	}

	switch {
	case tourdesk.IsValidation(err):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Fields: validationFields(err)}
	case errors.Is(err, tourdesk.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "forbidden"}
	case tourdesk.IsNotFound(err):
		return http.StatusNotFound, ErrorResponse{Error: notFoundMessage(err)}
	case tourdesk.IsConflict(err):
		return http.StatusConflict, ErrorResponse{Error: err.Error()}
	case tourdesk.IsRetryable(err):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable, retry"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
	}
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var collect func(error)
	collect = func(err error) {
		var ve tourdesk.ValidationError
		if errors.As(err, &ve) {
			fields[ve.Field] = ve.Message
		}
		var me tourdesk.MultiError
		if errors.As(err, &me) {
			for _, inner := range me.Errors {
				collect(inner)
			}
		}
	}
	collect(err)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, tourdesk.ErrTourNotFound):
		return "tour not found"
	case errors.Is(err, tourdesk.ErrBookingNotFound):
		return "booking not found"
	case errors.Is(err, tourdesk.ErrNotificationNotFound):
		return "notification not found"
	case errors.Is(err, tourdesk.ErrUserNotFound):
		return "user not found"
	default:
		return "not found"
	}
}

// bindAndValidate decodes the request into dst and validates it.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return c.Validate(dst)
}

// parseID turns a malformed identifier into a field-level validation error.
func parseID(field, raw string, parse func(string) (id.ID, error)) (id.ID, error) {
	if raw == "" {
		return id.Nil, tourdesk.ValidationError{Field: field, Message: "is required"}
	}
	v, err := parse(raw)
	if err != nil {
		return id.Nil, tourdesk.ValidationError{Field: field, Message: "is not a valid identifier"}
	}
	return v, nil
}

// parseOptionalID is parseID for identifiers that may be omitted.
func parseOptionalID(field, raw string, parse func(string) (id.ID, error)) (id.ID, error) {
	if raw == "" {
		return id.Nil, nil
	}
	return parseID(field, raw, parse)
}

type successResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) health(c echo.Context) error {
	if err := h.engine.Ping(c.Request().Context()); err != nil {
		h.logger.Warn("api: health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
