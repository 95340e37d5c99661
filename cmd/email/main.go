package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joao-fontenele/reefmart/internal/config"
	"github.com/joao-fontenele/reefmart/internal/email"
	"github.com/joao-fontenele/reefmart/internal/httpserver"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	config.Load()

	metricsHandler, shutdown, err := telemetry.Setup(ctx, "email", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdown(ctx) }()

	handler, err := email.NewHandler(logger)
	if err != nil {
		logger.Error("failed to create email handler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	port := config.String("PORT", "8084")
	if err := httpserver.Run(logger, "email", port, httpserver.Instrument(mux, "email")); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
