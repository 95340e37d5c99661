package cart

import (
	"net/http"

	"github.com/joao-fontenele/reefmart/internal/session"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

func (h *Handler) Register(mux *http.ServeMux, sessions *session.Manager) {
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleList)))
	mux.HandleFunc("POST /cart", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleAdd)))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleDelete)))
	mux.HandleFunc("PATCH /cart/{id}", telemetry.WithHTTPRoute(sessions.RequireUser(h.HandleUpdateQuantity)))
}
