package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	accounts  *services.AccountService
	directory *services.DirectoryService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *services.AccountService, directory *services.DirectoryService) *UserHandler {
	return &UserHandler{accounts: accounts, directory: directory}
}

// RegisterProfileRoutes registers the caller's own profile and settings routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.POST("/profile/photo", h.UploadPhoto)

	g.PUT("/settings/password", h.ChangePassword)
	g.PUT("/settings/dark-mode", h.SetDarkMode)
	g.PUT("/settings/color", h.SetColor)
	g.POST("/settings/username", h.RequestUsernameChange)
	g.POST("/settings/username/confirm", h.ConfirmUsernameChange)
	g.POST("/settings/email", h.RequestEmailChange)
	g.POST("/settings/email/confirm", h.ConfirmEmailChange)
	g.POST("/settings/phone", h.RequestPhoneChange)
	g.POST("/settings/phone/confirm", h.ConfirmPhoneChange)
}

// RegisterUserRoutes registers the user directory
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users", h.ListUsers)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/suggestions", h.Suggestions)
	g.GET("/users/:slug", h.GetUser)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.accounts.GetProfile(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Profile retrieved", user)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.UpdateProfile(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Profile updated", user)
}

// UploadPhoto accepts a multipart "photo" field
func (h *UserHandler) UploadPhoto(c echo.Context) error {
	fh, err := c.FormFile("photo")
	if err != nil {
		return apperrors.Validation("the photo field is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperrors.Validation("the photo field is required")
	}
	defer f.Close()

	user, err := h.accounts.UploadPhoto(c.Request().Context(), middleware.UserID(c), fh.Filename, f)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Photo updated", user)
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req models.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ChangePassword(c.Request().Context(), middleware.UserID(c), req); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password changed", nil)
}

func (h *UserHandler) SetDarkMode(c echo.Context) error {
	var req models.DarkModeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.SetDarkMode(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Dark mode updated", user)
}

func (h *UserHandler) SetColor(c echo.Context) error {
	var req models.ColorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.SetColor(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Color updated", user)
}

func (h *UserHandler) RequestUsernameChange(c echo.Context) error {
	var req models.UsernameChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.RequestUsernameChange(c.Request().Context(), middleware.UserID(c), req); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, "A confirmation code was sent to your email address", nil)
}

func (h *UserHandler) RequestEmailChange(c echo.Context) error {
	var req models.EmailChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.RequestEmailChange(c.Request().Context(), middleware.UserID(c), req); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, "A confirmation code was sent to the new email address", nil)
}

func (h *UserHandler) RequestPhoneChange(c echo.Context) error {
	var req models.PhoneChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.RequestPhoneChange(c.Request().Context(), middleware.UserID(c), req); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, "A confirmation code was sent to the new phone number", nil)
}

func (h *UserHandler) ConfirmUsernameChange(c echo.Context) error {
	return h.confirm(c, "Username changed", h.accounts.ConfirmUsernameChange)
}

func (h *UserHandler) ConfirmEmailChange(c echo.Context) error {
	return h.confirm(c, "Email address changed", h.accounts.ConfirmEmailChange)
}

func (h *UserHandler) ConfirmPhoneChange(c echo.Context) error {
	return h.confirm(c, "Phone number changed", h.accounts.ConfirmPhoneChange)
}

type confirmFunc func(ctx context.Context, userID uint, req models.ConfirmChangeRequest) (*models.User, error)

func (h *UserHandler) confirm(c echo.Context, message string, fn confirmFunc) error {
	var req models.ConfirmChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := fn(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, message, user)
}

// GetUser returns another user's public profile
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.accounts.GetUserBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User retrieved", user)
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.directory.ListUsers(c.Request().Context(), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Users retrieved", p)
}

// SearchUsers matches q against name and username
func (h *UserHandler) SearchUsers(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.directory.Search(c.Request().Context(), c.QueryParam("q"), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Users retrieved", p)
}

func (h *UserHandler) Suggestions(c echo.Context) error {
	users, err := h.directory.Suggestions(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	if users == nil {
		users = []models.UserCompact{}
	}
	return respond(c, http.StatusOK, "Suggestions retrieved", users)
}
