// Command shop serves the cart, checkout, order history and sales summary.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/reefmart/internal/cart"
	"github.com/joao-fontenele/reefmart/internal/catalog"
	"github.com/joao-fontenele/reefmart/internal/config"
	"github.com/joao-fontenele/reefmart/internal/httpserver"
	"github.com/joao-fontenele/reefmart/internal/messaging"
	"github.com/joao-fontenele/reefmart/internal/orders"
	"github.com/joao-fontenele/reefmart/internal/sales"
	"github.com/joao-fontenele/reefmart/internal/session"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	config.Load()

	metricsHandler, shutdown, err := telemetry.Setup(ctx, "shop", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdown(ctx) }()

	postgresURL, err := config.Require("POSTGRES_URL")
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	catalogURL, err := config.Require("CATALOG_SERVICE_URL")
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	sessions, err := session.ManagerFromEnv()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	db, err := telemetry.OpenPostgres(ctx, postgresURL, "shop")
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// A nil interface, not a nil *Producer, keeps publishing disabled.
	var publisher orders.Publisher
	if brokers := config.List("KAFKA_BROKERS"); len(brokers) > 0 {
		producer := messaging.NewProducer(brokers, messaging.OrderPlacedTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	catalogClient := catalog.NewClient(catalogURL, httpserver.NewClient())

	cartHandler, err := cart.NewHandler(cart.NewCartRepository(db), catalogClient, logger)
	if err != nil {
		logger.Error("failed to create cart handler", "error", err)
		os.Exit(1)
	}

	orderRepo := orders.NewOrderRepository(db)
	ordersHandler, err := orders.NewHandler(orderRepo, publisher, logger)
	if err != nil {
		logger.Error("failed to create orders handler", "error", err)
		os.Exit(1)
	}

	salesHandler := sales.NewHandler(orderRepo, logger)

	mux := http.NewServeMux()
	cartHandler.Register(mux, sessions)
	ordersHandler.Register(mux, sessions)
	salesHandler.Register(mux, sessions)
	mux.Handle("GET /metrics", metricsHandler)

	port := config.String("PORT", "8082")
	if err := httpserver.Run(logger, "shop", port, httpserver.Instrument(mux, "shop")); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
