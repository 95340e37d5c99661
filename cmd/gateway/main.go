package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joao-fontenele/reefmart/internal/config"
	"github.com/joao-fontenele/reefmart/internal/gateway"
	"github.com/joao-fontenele/reefmart/internal/httpserver"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	config.Load()

	metricsHandler, shutdown, err := telemetry.Setup(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdown(ctx) }()

	urls := map[string]string{}
	for _, key := range []string{"CATALOG_SERVICE_URL", "SHOP_SERVICE_URL", "ACCOUNTS_SERVICE_URL"} {
		val, err := config.Require(key)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		urls[key] = val
	}

	httpClient := httpserver.NewClient()
	handler := gateway.NewHandler(
		gateway.NewServiceProxy("catalog", urls["CATALOG_SERVICE_URL"], httpClient),
		gateway.NewServiceProxy("shop", urls["SHOP_SERVICE_URL"], httpClient),
		gateway.NewServiceProxy("accounts", urls["ACCOUNTS_SERVICE_URL"], httpClient),
		logger,
	)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	port := config.String("PORT", "8080")
	if err := httpserver.Run(logger, "gateway", port, httpserver.Instrument(mux, "gateway")); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
