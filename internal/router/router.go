package router

import (
	"github.com/anonto42/nano-social/backend/internal/auth"
	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/handlers"
	"github.com/anonto42/nano-social/backend/internal/middleware"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/anonto42/nano-social/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Accounts      *services.AccountService
	Directory     *services.DirectoryService
	Graph         *services.GraphService
	Notifications *services.NotificationService
	Tokens        *auth.Tokens
	Hub           *delivery.Hub
	Media         handlers.MediaSource
	// Redis backs the rate limiter. Nil disables it.
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Logger    *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Deps) {
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(d.Logger)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	handlers.NewMediaHandler(d.Media).RegisterMediaRoutes(e)

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)
	requireAuth := middleware.JWTAuthMiddleware(d.Tokens)
	verified := middleware.RequireVerified()

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth", limit)
	handlers.NewAuthHandler(d.Accounts).RegisterAuthRoutes(authGroup, requireAuth)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1", requireAuth, limit)

	users := handlers.NewUserHandler(d.Accounts, d.Directory)
	users.RegisterProfileRoutes(api)
	users.RegisterUserRoutes(api)

	handlers.NewPostHandler(d.Graph).RegisterPostRoutes(api, verified)
	handlers.NewFeedHandler(d.Graph).RegisterFeedRoutes(api)
	handlers.NewFollowHandler(d.Graph).RegisterFollowRoutes(api, verified)
	handlers.NewCommentHandler(d.Graph).RegisterCommentRoutes(api, verified)
	handlers.NewLikeHandler(d.Graph).RegisterLikeRoutes(api, verified)
	handlers.NewBookmarkHandler(d.Graph).RegisterBookmarkRoutes(api, verified)
	handlers.NewNotificationHandler(d.Notifications, d.Hub, d.Logger).RegisterNotificationRoutes(api)

	d.Logger.Info("All routes configured.", zap.Int("routes", len(e.Routes())))
}
