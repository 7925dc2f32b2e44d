package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow-related HTTP requests
type FollowHandler struct {
	graph *services.GraphService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(graph *services.GraphService) *FollowHandler {
	return &FollowHandler{graph: graph}
}

// RegisterFollowRoutes registers follow routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, verified echo.MiddlewareFunc) {
	g.GET("/users/:slug/followers", h.GetFollowers)
	g.GET("/users/:slug/following", h.GetFollowing)
	g.POST("/users/:slug/follow", h.Follow, verified)
	g.DELETE("/users/:slug/follow", h.Unfollow, verified)
}

// Follow starts following a user
func (h *FollowHandler) Follow(c echo.Context) error {
	if err := h.graph.Follow(c.Request().Context(), middleware.UserID(c), c.Param("slug")); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Followed successfully", nil)
}

// Unfollow stops following a user
func (h *FollowHandler) Unfollow(c echo.Context) error {
	if err := h.graph.Unfollow(c.Request().Context(), middleware.UserID(c), c.Param("slug")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Unfollowed successfully", nil)
}

// GetFollowers returns the users following :slug
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.graph.ListFollowers(c.Request().Context(), c.Param("slug"), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Followers retrieved", p)
}

// GetFollowing returns the users :slug follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.graph.ListFollowing(c.Request().Context(), c.Param("slug"), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Following retrieved", p)
}
