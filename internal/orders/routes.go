package orders

import (
	"net/http"

	"github.com/joao-fontenele/reefmart/internal/session"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

func (h *Handler) Register(mux *http.ServeMux, sessions *session.Manager) {
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleCheckout)))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleList)))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleGet)))
	mux.HandleFunc("POST /orders/{id}/received", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleReceived)))

	mux.HandleFunc("GET /admin/orders", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleListAll)))
	mux.HandleFunc("PATCH /admin/orders/{id}/status", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleUpdateStatus)))
}
