package accounts

import (
	"net/http"

	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/signup", telemetry.WithHTTPRoute(h.HandleSignup))
	mux.HandleFunc("POST /auth/login", telemetry.WithHTTPRoute(h.HandleLogin))

	mux.HandleFunc("GET /profile", telemetry.WithHTTPRoute(h.sessions.RequireUser(h.HandleProfile)))
	mux.HandleFunc("PUT /profile/address", telemetry.WithHTTPRoute(h.sessions.RequireUser(h.HandleUpdateAddress)))
	mux.HandleFunc("POST /profile/password", telemetry.WithHTTPRoute(h.sessions.RequireUser(h.HandleChangePassword)))
}
