// Package gateway is the single public entry point. It routes each public
// path to the service that owns it and never exposes the internal stock
// endpoints.
package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

// copiedHeaders are passed back from the backend response.
var copiedHeaders = []string{"Content-Type", "Content-Disposition"}

type Handler struct {
	catalog  *ServiceProxy
	shop     *ServiceProxy
	accounts *ServiceProxy
	logger   *slog.Logger
}

func NewHandler(catalog, shop, accounts *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		shop:     shop,
		accounts: accounts,
		logger:   logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		proxy   *ServiceProxy
	}{
		{"GET /products", h.catalog},
		{"GET /products/", h.catalog},
		{"GET /categories", h.catalog},
		{"/admin/products", h.catalog},
		{"/admin/products/", h.catalog},

		{"/cart", h.shop},
		{"/cart/", h.shop},
		{"POST /checkout", h.shop},
		{"GET /orders", h.shop},
		{"/orders/", h.shop},
		{"GET /admin/orders", h.shop},
		{"/admin/orders/", h.shop},
		{"GET /admin/sales", h.shop},

		{"/auth/", h.accounts},
		{"/profile", h.accounts},
		{"/profile/", h.accounts},
	}

	for _, route := range routes {
		mux.HandleFunc(route.pattern, telemetry.WithHTTPRoute(h.forwardTo(route.proxy)))
	}
}

func (h *Handler) forwardTo(proxy *ServiceProxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.proxyRequest(w, r, proxy)
	}
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy) {
	resp, err := proxy.ForwardRequest(r.Context(), r)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "service", proxy.name, "path", r.URL.Path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, k := range copiedHeaders {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "service", proxy.name, "path", r.URL.Path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
