package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/reefmart/internal/catalog"
	"github.com/joao-fontenele/reefmart/internal/domain"
	"github.com/joao-fontenele/reefmart/internal/session"
)

type Store interface {
	Add(ctx context.Context, item *domain.CartItem) error
	List(ctx context.Context, userKey string) ([]domain.CartItem, error)
	Get(ctx context.Context, userKey, id string) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userKey, id string, from, to int) (*domain.CartItem, error)
	Delete(ctx context.Context, userKey string, ids []string) ([]domain.CartItem, error)
}

// Stock is the part of the catalog the cart depends on.
type Stock interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, quantity int) (*domain.StockLevel, error)
	IncrementStock(ctx context.Context, id string, quantity int) (*domain.StockLevel, error)
}

type Handler struct {
	repo       Store
	stock      Stock
	logger     *slog.Logger
	itemsAdded metric.Int64Counter
	now        func() time.Time
}

func NewHandler(repo Store, stock Stock, logger *slog.Logger) (*Handler, error) {
	meter := otel.Meter("cart")
	itemsAdded, err := meter.Int64Counter("cart.items_added",
		metric.WithDescription("Units added to carts"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		repo:       repo,
		stock:      stock,
		logger:     logger,
		itemsAdded: itemsAdded,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

type cartResponse struct {
	Items []domain.CartItem `json:"items"`
	Total int64             `json:"total"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())

	items, err := h.repo.List(r.Context(), claims.UserKey)
	if err != nil {
		h.logger.Error("failed to list cart", "error", err, "user_key", claims.UserKey)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var total int64
	for _, item := range items {
		total += item.TotalPrice
	}

	h.writeJSON(w, http.StatusOK, cartResponse{Items: items, Total: total})
}

type addRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// HandleAdd takes the requested quantity out of catalog stock and records a
// cart line with a snapshot of the product. If the line cannot be stored the
// stock is handed back.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	product, err := h.stock.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.writeStockError(w, err, req.ProductID)
		return
	}

	if _, err := h.stock.DecrementStock(r.Context(), product.ID, req.Quantity); err != nil {
		h.writeStockError(w, err, product.ID)
		return
	}

	item := &domain.CartItem{
		UserKey:    claims.UserKey,
		ProductID:  product.ID,
		Name:       product.Name,
		Price:      product.Price,
		Category:   product.Category,
		Image:      product.Image,
		Quantity:   req.Quantity,
		TotalPrice: domain.LineTotal(product.Price, req.Quantity),
		AddedAt:    h.now(),
	}

	if err := h.repo.Add(r.Context(), item); err != nil {
		h.logger.Error("failed to add cart item", "error", err, "user_key", claims.UserKey, "product_id", product.ID)
		h.releaseStock(r.Context(), product.ID, req.Quantity)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.itemsAdded.Add(r.Context(), int64(req.Quantity))
	h.logger.Info("cart item added", "cart_item_id", item.ID, "user_key", claims.UserKey, "product_id", product.ID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusCreated, item)
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

// updateAttempts bounds how often a quantity change is retried when a
// concurrent request changed the line between the read and the write.
const updateAttempts = 3

// HandleUpdateQuantity moves the difference between the old and new quantity
// in or out of catalog stock. Extra units are reserved before the write and
// returned units are released only after it.
func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart item id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	for attempt := 0; attempt < updateAttempts; attempt++ {
		item, err := h.repo.Get(r.Context(), claims.UserKey, id)
		if err != nil {
			h.logger.Error("failed to get cart item", "error", err, "cart_item_id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if item == nil {
			h.writeError(w, http.StatusNotFound, "cart item not found")
			return
		}

		delta := req.Quantity - item.Quantity
		if delta > 0 {
			if _, err := h.stock.DecrementStock(r.Context(), item.ProductID, delta); err != nil {
				h.writeStockError(w, err, item.ProductID)
				return
			}
		}

		// The write only lands if the line still holds the quantity the
		// delta was computed from.
		updated, err := h.repo.UpdateQuantity(r.Context(), claims.UserKey, id, item.Quantity, req.Quantity)
		if err != nil || updated == nil {
			if delta > 0 {
				h.releaseStock(r.Context(), item.ProductID, delta)
			}
			if err != nil {
				h.logger.Error("failed to update cart item", "error", err, "cart_item_id", id)
				h.writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			continue
		}

		if delta < 0 {
			h.releaseStock(r.Context(), item.ProductID, -delta)
		}

		h.logger.Info("cart item updated", "cart_item_id", id, "quantity", req.Quantity)
		h.writeJSON(w, http.StatusOK, updated)
		return
	}

	h.logger.Warn("cart item kept changing during update", "cart_item_id", id)
	h.writeError(w, http.StatusConflict, "cart item was modified concurrently")
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// HandleDelete removes the selected lines and returns their units to stock.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "no cart items selected")
		return
	}

	removed, err := h.repo.Delete(r.Context(), claims.UserKey, req.IDs)
	if err != nil {
		h.logger.Error("failed to delete cart items", "error", err, "user_key", claims.UserKey)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	for _, item := range removed {
		h.releaseStock(r.Context(), item.ProductID, item.Quantity)
	}

	h.logger.Info("cart items deleted", "user_key", claims.UserKey, "count", len(removed))
	h.writeJSON(w, http.StatusOK, removed)
}

// releaseStock is best effort: a product deleted since the line was added has
// no stock to return to.
func (h *Handler) releaseStock(ctx context.Context, productID string, quantity int) {
	if _, err := h.stock.IncrementStock(ctx, productID, quantity); err != nil {
		h.logger.Error("failed to release stock", "error", err, "product_id", productID, "quantity", quantity)
	}
}

func (h *Handler) writeStockError(w http.ResponseWriter, err error, productID string) {
	var stockErr *catalog.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient stock",
			"available": stockErr.Available,
		})
	case errors.Is(err, catalog.ErrInsufficientStock):
		h.writeError(w, http.StatusConflict, "insufficient stock")
	case errors.Is(err, catalog.ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	default:
		h.logger.Error("catalog request failed", "error", err, "product_id", productID)
		h.writeError(w, http.StatusBadGateway, "catalog unavailable")
	}
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
