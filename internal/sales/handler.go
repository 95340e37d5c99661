package sales

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/reefmart/internal/domain"
	"github.com/joao-fontenele/reefmart/internal/session"
	"github.com/joao-fontenele/reefmart/internal/telemetry"
)

type OrderSource interface {
	ListAll(ctx context.Context) ([]domain.Order, error)
}

type Handler struct {
	orders OrderSource
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(orders OrderSource, logger *slog.Logger) *Handler {
	return &Handler{
		orders: orders,
		logger: logger,
		now:    time.Now,
	}
}

func (h *Handler) Register(mux *http.ServeMux, sessions *session.Manager) {
	mux.HandleFunc("GET /admin/sales", telemetry.WithHTTPRoute(sessions.RequireAdmin(h.HandleSummary)))
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to load orders for sales summary", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	summary := Summarize(Window(orders, period.Since(h.now())))

	h.logger.Info("sales summarized", "period", period, "orders", len(orders), "total_sales", summary.TotalSales)
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
