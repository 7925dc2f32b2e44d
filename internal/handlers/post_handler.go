package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	graph *services.GraphService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(graph *services.GraphService) *PostHandler {
	return &PostHandler{graph: graph}
}

// RegisterPostRoutes registers post routes. Mutations go through verified.
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, verified echo.MiddlewareFunc) {
	g.GET("/posts", h.ListPosts)
	g.GET("/posts/:slug", h.GetPost)
	g.GET("/users/:slug/posts", h.ListUserPosts)
	g.POST("/posts", h.CreatePost, verified)
	g.PUT("/posts/:slug", h.UpdatePost, verified)
	g.DELETE("/posts/:slug", h.DeletePost, verified)
}

// CreatePost handles creating a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.graph.CreatePost(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Post created", post)
}

// GetPost retrieves a single post by slug
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.graph.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Post retrieved", post)
}

// ListPosts lists all posts; ?order=popular sorts by likes
func (h *PostHandler) ListPosts(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.graph.ListPosts(c.Request().Context(), models.PostOrder(c.QueryParam("order")), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Posts retrieved", p)
}

func (h *PostHandler) ListUserPosts(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.graph.ListUserPosts(c.Request().Context(), c.Param("slug"), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Posts retrieved", p)
}

// UpdatePost edits the body of the caller's own post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.graph.UpdatePost(c.Request().Context(), middleware.UserID(c), c.Param("slug"), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Post updated", post)
}

// DeletePost removes the caller's post with its comments, likes and bookmarks
func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.graph.DeletePost(c.Request().Context(), middleware.UserID(c), c.Param("slug")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Post deleted", nil)
}
