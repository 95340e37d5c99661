package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/reefmart/internal/accounts"
	"github.com/joao-fontenele/reefmart/internal/config"
	"github.com/joao-fontenele/reefmart/internal/httpserver"
	"github.com/joao-fontenele/reefmart/internal/session"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	config.Load()

	metricsHandler, shutdown, err := telemetry.Setup(ctx, "accounts", "0.1.0")
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

	sessions, err := session.ManagerFromEnv()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	db, err := telemetry.OpenPostgres(ctx, postgresURL, "accounts")
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	handler, err := accounts.NewHandler(accounts.NewUserRepository(db), sessions, config.List("ADMIN_EMAILS"), logger)
	if err != nil {
		logger.Error("failed to create accounts handler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	port := config.String("PORT", "8083")
	if err := httpserver.Run(logger, "accounts", port, httpserver.Instrument(mux, "accounts")); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
