package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-social/backend/internal/auth"
	"github.com/anonto42/nano-social/backend/internal/cache"
	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/media"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/internal/router"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/anonto42/nano-social/backend/pkg/firebase"
	"github.com/anonto42/nano-social/backend/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// Initialize database connections
	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	store := repositories.NewPostgresStore(db.Postgres)
	if err := store.AutoMigrate(); err != nil {
		log.Fatal("Failed to auto migrate models", zap.Error(err))
	}
	log.Info("PostgreSQL auto-migrations completed for all models.")

	photos, err := media.NewGridFSStore(db.Mongo.Database(cfg.MongoDatabase), cfg.Services.PublicBaseURL)
	if err != nil {
		log.Fatal("Failed to open media bucket", zap.Error(err))
	}

	// Firebase is optional: without it the firebase login and push are off.
	ctx := context.Background()
	var verifier services.IDTokenVerifier
	var pusher delivery.PushSender
	if fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log); err != nil {
		log.Warn("Firebase disabled", zap.Error(err))
	} else {
		verifier = firebase.NewVerifier(fb.AuthClient)
		pusher = delivery.NewPusher(fb.MessagingClient)
	}

	publisher := newPublisher(cfg, pusher, log)
	defer publisher.Close()

	dispatcher := delivery.NewDispatcher(cfg.Dispatch.Workers, cfg.Dispatch.Queue, cfg.Dispatch.Timeout, log)
	defer dispatcher.Close()

	kv := cache.NewRedis(db.Redis, "nano")
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, kv)
	hub := delivery.NewHub(log)

	notifications := services.NewNotificationService(store, hub, publisher, dispatcher, cfg.Services, log)
	directory := services.NewDirectoryService(store, kv, cfg.Services, log)
	graph := services.NewGraphService(store, notifications, directory, cfg.Services, log)
	accounts := services.NewAccountService(services.AccountDeps{
		Store:         store,
		Tokens:        tokens,
		Hasher:        auth.NewHasher(cfg.BcryptCost),
		Cache:         kv,
		Photos:        photos,
		Notifications: notifications,
		Verifier:      verifier,
	}, cfg.Services, log)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Setup global middleware
	config.SetupMiddleware(e, log)

	// Setup routes and dependencies
	router.SetupRoutes(e, router.Deps{
		Accounts:      accounts,
		Directory:     directory,
		Graph:         graph,
		Notifications: notifications,
		Tokens:        tokens,
		Hub:           hub,
		Media:         photos,
		Redis:         db.Redis,
		RateLimit:     cfg.RateLimit,
		Logger:        log,
	})

	// Start server
	go func() {
		log.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}

// newPublisher picks the broker that carries delivery messages. Without one
// the API process delivers through its own router.
func newPublisher(cfg *config.Config, pusher delivery.PushSender, log *zap.Logger) delivery.Publisher {
	switch cfg.Broker.Kind {
	case "rabbitmq":
		return delivery.NewRabbitPublisher(cfg.Broker.RabbitMQURL)
	case "kafka":
		return delivery.NewKafkaPublisher(cfg.Broker.KafkaBrokers, cfg.Broker.KafkaTopic)
	default:
		return delivery.NewDirect(delivery.NewRouter(delivery.NewMailer(cfg.SMTP), pusher, log))
	}
}
