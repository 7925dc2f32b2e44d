package handlers

import (
	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler serves the home timeline
type FeedHandler struct {
	graph *services.GraphService
}

func NewFeedHandler(graph *services.GraphService) *FeedHandler {
	return &FeedHandler{graph: graph}
}

func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed lists posts by the caller and everyone they follow, newest first
func (h *FeedHandler) GetFeed(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.graph.Feed(c.Request().Context(), middleware.UserID(c), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Feed retrieved", p)
}
