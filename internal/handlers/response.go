package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"github.com/anonto42/nano-social/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Response is the envelope of every non-list reply.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ListResponse is the envelope of every paginated reply.
type ListResponse[T any] struct {
	Items      []T    `json:"items"`
	HasMore    bool   `json:"has_more"`
	NextOffset *int   `json:"next_offset"`
	Status     int    `json:"status"`
	Message    string `json:"message"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Status: status, Message: message, Data: data})
}

func respondPage[T any](c echo.Context, message string, p pagination.Page[T]) error {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, ListResponse[T]{
		Items:      items,
		HasMore:    p.HasMore,
		NextOffset: p.NextOffset,
		Status:     http.StatusOK,
		Message:    message,
	})
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return apperrors.Validation("%s", validators.Message(err))
	}
	return nil
}

// pageParams reads page_size and offset (the 1-based page number).
func pageParams(c echo.Context) (pageSize, page int) {
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	page, _ = strconv.Atoi(c.QueryParam("offset"))
	return pagination.Normalize(pageSize, page)
}

func idParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NotFound("%s not found", name)
	}
	return uint(id), nil
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation, apperrors.KindInvalidMedia:
		return http.StatusUnprocessableEntity
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewHTTPErrorHandler renders every error returned by a handler or
// middleware in the Response envelope.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if werr := respondError(c, err, logger); werr != nil {
			logger.Warn("write error response", zap.Error(werr))
		}
	}
}

func respondError(c echo.Context, err error, logger *zap.Logger) error {
	status, message := http.StatusInternalServerError, "internal server error"
	var httpErr *echo.HTTPError
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		status = StatusOf(appErr.Kind)
		message = appErr.Message
	case errors.As(err, &httpErr):
		status = httpErr.Code
		message = http.StatusText(status)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSON(status, Response{Status: status, Message: message})
}
