package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/reefmart/internal/catalog"
	"github.com/joao-fontenele/reefmart/internal/config"
	"github.com/joao-fontenele/reefmart/internal/httpserver"
	"github.com/joao-fontenele/reefmart/internal/messaging"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
	"github.com/joao-fontenele/reefmart/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	brokers := config.List("KAFKA_BROKERS")
	if len(brokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	emailServiceURL, err := config.Require("EMAIL_SERVICE_URL")
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	catalogServiceURL, err := config.Require("CATALOG_SERVICE_URL")
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	threshold, err := config.Int("LOW_STOCK_THRESHOLD", 5)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	consumer := messaging.NewConsumer(brokers, messaging.OrderPlacedTopic, "receipt-worker",
		messaging.WithRetry(3, 500*time.Millisecond),
	)
	defer func() { _ = consumer.Close() }()

	httpClient := httpserver.NewClient()
	receipts := worker.NewReceiptHandler(
		worker.Config{
			EmailServiceURL:   emailServiceURL,
			AlertEmail:        config.String("ALERT_EMAIL", ""),
			LowStockThreshold: threshold,
		},
		catalog.NewClient(catalogServiceURL, httpClient),
		httpClient,
		logger,
	)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting receipt worker", "brokers", brokers, "topic", messaging.OrderPlacedTopic)

	if err := consumer.Consume(ctx, receipts.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
