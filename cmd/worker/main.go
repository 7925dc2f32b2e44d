package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/anonto42/nano-social/backend/pkg/firebase"
	"github.com/anonto42/nano-social/backend/pkg/logger"
	"go.uber.org/zap"
)

// The worker drains the delivery broker and sends each message by email,
// SMS or FCM push.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pusher delivery.PushSender
	if fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log); err != nil {
		log.Warn("Firebase disabled, push notifications will be skipped", zap.Error(err))
	} else {
		pusher = delivery.NewPusher(fb.MessagingClient)
	}
	router := delivery.NewRouter(delivery.NewMailer(cfg.SMTP), pusher, log)

	switch cfg.Broker.Kind {
	case "rabbitmq":
		log.Info("Consuming RabbitMQ", zap.String("queue", delivery.DeliverQueue))
		err = delivery.ConsumeRabbit(ctx, cfg.Broker.RabbitMQURL, router.Handle, log)
	case "kafka":
		log.Info("Consuming Kafka", zap.Strings("brokers", cfg.Broker.KafkaBrokers), zap.String("topic", cfg.Broker.KafkaTopic))
		err = delivery.ConsumeKafka(ctx, cfg.Broker.KafkaBrokers, cfg.Broker.KafkaTopic, cfg.Broker.KafkaGroupID, router.Handle, log)
	default:
		log.Fatal("NOTIFY_BROKER must be rabbitmq or kafka for the worker", zap.String("broker", cfg.Broker.Kind))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Worker stopped", zap.Error(err))
	}
	log.Info("Worker stopped")
}
