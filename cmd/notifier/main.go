package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rentmate/internal/notifier"
	"rentmate/pkg/config"
	"rentmate/pkg/kafka"
	kafka_middleware "rentmate/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	if !cfg.EventsEnabled {
		cfg.Log.Fatal("Notifier requires EVENTS_ENABLED=true")
	}

	handler := notifier.NewHandler(notifier.NewLogSender(cfg.Log), cfg.Log)
	consumer, err := kafka.NewConsumer(cfg.Kafka, handler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "topic", cfg.Kafka.Topic, "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if !kafka_middleware.AttachConsumer(consumer, cfg.Kafka, cfg.Log, metrics) {
		cfg.Log.Info("Kafka consumer middleware disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notifier", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped", "metrics", metrics.Snapshot())
}
