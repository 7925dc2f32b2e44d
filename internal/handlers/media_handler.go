package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/media"
	"github.com/labstack/echo/v4"
)

// MediaSource opens a stored file by id.
type MediaSource interface {
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// MediaHandler streams uploaded photos
type MediaHandler struct {
	source MediaSource
}

func NewMediaHandler(source MediaSource) *MediaHandler {
	return &MediaHandler{source: source}
}

func (h *MediaHandler) RegisterMediaRoutes(e *echo.Echo) {
	e.GET("/media/:id", h.Get)
}

func (h *MediaHandler) Get(c echo.Context) error {
	rc, contentType, err := h.source.Open(c.Request().Context(), c.Param("id"))
	if errors.Is(err, media.ErrNotFound) {
		return apperrors.NotFound("media not found")
	}
	if err != nil {
		return apperrors.Transient(err)
	}
	defer rc.Close()
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Stream(http.StatusOK, contentType, rc)
}
