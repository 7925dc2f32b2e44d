package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles likes on posts and comments
type LikeHandler struct {
	graph *services.GraphService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(graph *services.GraphService) *LikeHandler {
	return &LikeHandler{graph: graph}
}

// RegisterLikeRoutes registers like routes. All of them mutate, so the
// whole set sits behind verified.
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, verified echo.MiddlewareFunc) {
	g.POST("/posts/:slug/like", h.LikePost, verified)
	g.DELETE("/posts/:slug/like", h.DislikePost, verified)
	g.POST("/comments/:id/like", h.LikeComment, verified)
	g.DELETE("/comments/:id/like", h.DislikeComment, verified)
}

func (h *LikeHandler) LikePost(c echo.Context) error {
	if err := h.graph.LikePost(c.Request().Context(), middleware.UserID(c), c.Param("slug")); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Post liked", nil)
}

func (h *LikeHandler) DislikePost(c echo.Context) error {
	if err := h.graph.DislikePost(c.Request().Context(), middleware.UserID(c), c.Param("slug")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Like removed", nil)
}

func (h *LikeHandler) LikeComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.graph.LikeComment(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Comment liked", nil)
}

func (h *LikeHandler) DislikeComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.graph.DislikeComment(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Like removed", nil)
}
