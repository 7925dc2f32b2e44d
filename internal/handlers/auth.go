package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	accounts *services.AccountService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// RegisterAuthRoutes registers authentication-related routes. requireAuth
// guards the routes that need a session.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
	g.POST("/verify", h.VerifyEmail)
	g.POST("/resend", h.ResendVerification)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)
	g.POST("/logout", h.Logout, requireAuth)
}

// Register creates a local account and mails the verification link
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Registration successful. Please verify your email address.", res)
}

// Login authenticates with email or username and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Login successful", res)
}

// FirebaseLogin exchanges a Firebase ID token for a session
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req models.FirebaseLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.FirebaseLogin(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req models.VerifyEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.VerifyEmail(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Email verified", res)
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req models.ResendVerificationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ResendVerification(c.Request().Context(), req); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Verification email sent", nil)
}

// ForgotPassword mails a single-use reset link
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req models.ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ForgotPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password reset link sent", nil)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password has been reset", nil)
}

// Logout revokes the session behind the caller's token
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.accounts.Logout(c.Request().Context(), *middleware.Identity(c)); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Logged out", nil)
}
