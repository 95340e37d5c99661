package catalog

import (
	"net/http"

	"github.com/joao-fontenele/reefmart/internal/session"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

// Register mounts the catalog routes. The stock decrement and increment
// routes are for other services and are not exposed by the gateway.
func (h *Handler) Register(mux *http.ServeMux, sessions *session.Manager) {
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(h.HandleList))
	mux.HandleFunc("GET /products/search", telemetry.WithHTTPRoute(h.HandleSearch))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(h.HandleGet))
	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(h.HandleCategories))
	mux.HandleFunc("POST /products/{id}/stock/decrement", telemetry.WithHTTPRoute(h.HandleDecrementStock))
	mux.HandleFunc("POST /products/{id}/stock/increment", telemetry.WithHTTPRoute(h.HandleIncrementStock))

	mux.HandleFunc("POST /admin/products", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleCreate)))
	mux.HandleFunc("GET /admin/products/export", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleExport)))
	mux.HandleFunc("PUT /admin/products/{id}", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleUpdate)))
	mux.HandleFunc("DELETE /admin/products/{id}", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleDelete)))
	mux.HandleFunc("POST /admin/products/{id}/stock", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleAdjustStock)))
}
