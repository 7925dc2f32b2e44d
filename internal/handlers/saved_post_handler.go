package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// BookmarkHandler handles saved posts
type BookmarkHandler struct {
	graph *services.GraphService
}

func NewBookmarkHandler(graph *services.GraphService) *BookmarkHandler {
	return &BookmarkHandler{graph: graph}
}

func (h *BookmarkHandler) RegisterBookmarkRoutes(g *echo.Group, verified echo.MiddlewareFunc) {
	g.GET("/bookmarks", h.ListBookmarks)
	g.POST("/posts/:slug/bookmark", h.Bookmark, verified)
	g.DELETE("/posts/:slug/bookmark", h.Unbookmark, verified)
}

func (h *BookmarkHandler) Bookmark(c echo.Context) error {
	if err := h.graph.BookmarkPost(c.Request().Context(), middleware.UserID(c), c.Param("slug")); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Post bookmarked", nil)
}

func (h *BookmarkHandler) Unbookmark(c echo.Context) error {
	if err := h.graph.UnbookmarkPost(c.Request().Context(), middleware.UserID(c), c.Param("slug")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Bookmark removed", nil)
}

// ListBookmarks lists the caller's saved posts, most recently saved first
func (h *BookmarkHandler) ListBookmarks(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.graph.ListBookmarks(c.Request().Context(), middleware.UserID(c), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Bookmarks retrieved", p)
}
