package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
	hub           *delivery.Hub
	logger        *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService, hub *delivery.Hub, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: hub, logger: logger}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.GET("/notifications/live", h.Live)
	g.POST("/notifications/peek", h.Peek)
	g.POST("/notifications/read-all", h.MarkAllAsRead)
	g.POST("/notifications/:id/read", h.MarkAsRead)
}

// GetNotifications returns the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	pageSize, page := pageParams(c)
	p, err := h.notifications.List(c.Request().Context(), middleware.UserID(c), pageSize, page)
	if err != nil {
		return err
	}
	return respondPage(c, "Notifications retrieved", p)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	n, err := h.notifications.UnreadCount(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Unread count retrieved", map[string]int64{"unread_count": n})
}

// Peek clears the badge without marking anything read
func (h *NotificationHandler) Peek(c echo.Context) error {
	n, err := h.notifications.Peek(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Notifications peeked", map[string]int64{"updated": n})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifications.MarkRead(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	n, err := h.notifications.MarkAllRead(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "All notifications marked as read", map[string]int64{"updated": n})
}

// Live upgrades to a websocket that receives the caller's notifications as
// they are created.
func (h *NotificationHandler) Live(c echo.Context) error {
	userID := middleware.UserID(c)
	if err := h.hub.Serve(c.Response(), c.Request(), userID); err != nil {
		// The upgrader has already written the failure response.
		h.logger.Debug("websocket upgrade failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	return nil
}
