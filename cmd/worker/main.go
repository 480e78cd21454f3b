package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flighthold/config"
	"github.com/Domenick1991/flighthold/internal/kafka"
	"github.com/Domenick1991/flighthold/internal/logger"
	"github.com/Domenick1991/flighthold/internal/notify"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.InitLogger(cfg.Log.Dir, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.NotificationsTopic == "" {
		zlog.Fatal("kafka brokers and notifications topic are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zlog)
	defer consumer.Close()

	notifier := notify.NewNotifier(notify.NewLogSender(zlog), zlog)

	zlog.Info("notification worker started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	if err := consumer.Consume(ctx, consumer.ReservationEvents(notifier.Handle)); err != nil {
		zlog.Error("consumer stopped", zap.Error(err))
		return
	}
	zlog.Info("notification worker stopped")
}
