package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comment-related HTTP requests
type CommentHandler struct {
	graph *services.GraphService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(graph *services.GraphService) *CommentHandler {
	return &CommentHandler{graph: graph}
}

// RegisterCommentRoutes registers comment routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, verified echo.MiddlewareFunc) {
	g.GET("/posts/:slug/comments", h.ListComments)
	g.POST("/posts/:slug/comments", h.CreateComment, verified)
	g.PUT("/comments/:id", h.UpdateComment, verified)
	g.DELETE("/comments/:id", h.DeleteComment, verified)
}

// CreateComment adds a comment to a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.graph.CreateComment(c.Request().Context(), middleware.UserID(c), c.Param("slug"), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Comment created", comment)
}

// ListComments lists a post's comments, oldest first
func (h *CommentHandler) ListComments(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.graph.ListComments(c.Request().Context(), c.Param("slug"), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Comments retrieved", p)
}

func (h *CommentHandler) UpdateComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.graph.UpdateComment(c.Request().Context(), middleware.UserID(c), id, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Comment updated", comment)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.graph.DeleteComment(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Comment deleted", nil)
}
