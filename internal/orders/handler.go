package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/reefmart/internal/domain"
	"github.com/joao-fontenele/reefmart/internal/session"
)

type Store interface {
	PlaceOrder(ctx context.Context, userKey string, itemIDs []string, now time.Time) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userKey string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	MarkReceived(ctx context.Context, userKey, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

// Publisher announces placed orders. messaging.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	repo      Store
	publisher Publisher
	logger    *slog.Logger
	placed    metric.Int64Counter
	revenue   metric.Int64Counter
	now       func() time.Time
}

// NewHandler accepts a nil publisher, in which case no events are sent.
func NewHandler(repo Store, publisher Publisher, logger *slog.Logger) (*Handler, error) {
	meter := otel.Meter("orders")

	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed at checkout"),
	)
	if err != nil {
		return nil, err
	}

	revenue, err := meter.Int64Counter("orders.revenue",
		metric.WithDescription("Order value placed at checkout"),
		metric.WithUnit("{cent}"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		placed:    placed,
		revenue:   revenue,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

type checkoutRequest struct {
	ItemIDs []string `json:"item_ids"`
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	itemIDs := uniqueIDs(req.ItemIDs)
	if len(itemIDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "no cart items selected")
		return
	}

	order, err := h.repo.PlaceOrder(r.Context(), claims.UserKey, itemIDs, h.now())
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			h.writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		h.logger.Error("failed to place order", "error", err, "user_key", claims.UserKey)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.placed.Add(r.Context(), 1)
	h.revenue.Add(r.Context(), order.TotalAmount)

	if h.publisher != nil {
		event := domain.NewOrderPlacedEvent(order, claims.Email)
		if err := h.publisher.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order placed", "order_id", order.ID, "order_number", order.OrderNumber, "user_key", claims.UserKey, "total_amount", order.TotalAmount)
	h.writeJSON(w, http.StatusCreated, order)
}

type Grouped struct {
	Pending   []domain.Order `json:"pending"`
	Completed []domain.Order `json:"completed"`
}

// GroupByCompletion splits orders into completed ones and everything else,
// keeping their order.
func GroupByCompletion(orders []domain.Order) Grouped {
	grouped := Grouped{Pending: []domain.Order{}, Completed: []domain.Order{}}
	for _, order := range orders {
		if order.Status == domain.OrderStatusCompleted {
			grouped.Completed = append(grouped.Completed, order)
		} else {
			grouped.Pending = append(grouped.Pending, order)
		}
	}
	return grouped
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())

	orders, err := h.repo.ListByUser(r.Context(), claims.UserKey)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_key", claims.UserKey)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_key", claims.UserKey, "count", len(orders))
	h.writeJSON(w, http.StatusOK, GroupByCompletion(orders))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil || (order.UserKey != claims.UserKey && !claims.IsAdmin()) {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleReceived(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.MarkReceived(r.Context(), claims.UserKey, id)
	if err != nil {
		if errors.Is(err, ErrOrderClosed) {
			h.writeError(w, http.StatusConflict, ErrOrderClosed.Error())
			return
		}
		h.logger.Error("failed to mark order received", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order received", "order_id", order.ID, "user_key", claims.UserKey)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list all orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("all orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
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
