package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

type Store interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product, setStock bool) (*domain.Product, error)
	Delete(ctx context.Context, id string) (bool, error)
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error)
}

type Handler struct {
	repo            Store
	logger          *slog.Logger
	stockRejections metric.Int64Counter
}

func NewHandler(repo Store, logger *slog.Logger) (*Handler, error) {
	meter := otel.Meter("catalog")
	stockRejections, err := meter.Int64Counter("catalog.stock_rejections",
		metric.WithDescription("Stock changes rejected because they would take stock below zero"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		repo:            repo,
		logger:          logger,
		stockRejections: stockRejections,
	}, nil
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	q := r.URL.Query()
	products = Filter(InCategory(products, q.Get("category")), q.Get("q"))

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

// HandleSearch differs from HandleList only in that a blank query yields no
// results.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeJSON(w, http.StatusOK, []domain.Product{})
		return
	}

	products, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to load products for search", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load products")
		return
	}

	results := Filter(products, query)
	h.logger.Info("products searched", "query", query, "count", len(results))
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, Categories(products))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

type productRequest struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Price    *int64  `json:"price"`
	Stock    *int    `json:"stock"`
	Image    *string `json:"image"`
}

// apply copies the set fields onto p.
func (req productRequest) apply(p *domain.Product) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Image != nil {
		p.Image = strings.TrimSpace(*req.Image)
	}
}

func validateProduct(p *domain.Product) string {
	switch {
	case p.Name == "" || p.Category == "" || p.Image == "":
		return "name, category, price, stock and image are required"
	case p.Price <= 0:
		return "price must be positive"
	case p.Stock < 0:
		return "stock cannot be negative"
	}
	return ""
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Price == nil || req.Stock == nil {
		h.writeError(w, http.StatusBadRequest, "name, category, price, stock and image are required")
		return
	}

	product := &domain.Product{}
	req.apply(product)
	if msg := validateProduct(product); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			h.writeError(w, http.StatusConflict, "a product named \""+product.Name+"\" already exists")
			return
		}
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	req.apply(product)
	if msg := validateProduct(product); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	// Stock read above may already be stale, so it is only written when the
	// request names it.
	updated, err := h.repo.Update(r.Context(), product, req.Stock != nil)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			h.writeError(w, http.StatusConflict, "a product named \""+product.Name+"\" already exists")
			return
		}
		h.logger.Error("failed to update product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if updated == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

// HandleAdjustStock is the admin stock counter.
func (h *Handler) HandleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		h.writeError(w, http.StatusBadRequest, "delta must not be zero")
		return
	}

	h.changeStock(w, r, req.Delta, "admin")
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) decodeQuantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return 0, false
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return 0, false
	}
	return req.Quantity, true
}

// HandleDecrementStock takes quantity units out of stock for a cart.
func (h *Handler) HandleDecrementStock(w http.ResponseWriter, r *http.Request) {
	quantity, ok := h.decodeQuantity(w, r)
	if !ok {
		return
	}
	h.changeStock(w, r, -quantity, "cart")
}

// HandleIncrementStock returns quantity units to stock.
func (h *Handler) HandleIncrementStock(w http.ResponseWriter, r *http.Request) {
	quantity, ok := h.decodeQuantity(w, r)
	if !ok {
		return
	}
	h.changeStock(w, r, quantity, "cart")
}

type insufficientStockResponse struct {
	Error     string `json:"error"`
	Available int    `json:"available"`
}

func (h *Handler) changeStock(w http.ResponseWriter, r *http.Request, delta int, source string) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.AdjustStock(r.Context(), id, delta)
	switch {
	case errors.Is(err, ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, ErrInsufficientStock):
		h.stockRejections.Add(r.Context(), 1, metric.WithAttributes(attribute.String("source", source)))

		available := 0
		current, err := h.repo.Get(r.Context(), id)
		switch {
		case err != nil:
			h.logger.Error("failed to read stock after rejection", "error", err, "product_id", id)
		case current != nil:
			available = current.Stock
		}
		h.writeJSON(w, http.StatusConflict, insufficientStockResponse{Error: ErrInsufficientStock.Error(), Available: available})
		return
	case err != nil:
		h.logger.Error("failed to adjust stock", "error", err, "product_id", id, "delta", delta)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock adjusted", "product_id", id, "delta", delta, "stock", product.Stock, "source", source)
	h.writeJSON(w, http.StatusOK, domain.StockLevel{ProductID: product.ID, Stock: product.Stock})
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list products for export", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	if err := WriteWorkbook(w, products); err != nil {
		h.logger.Error("failed to write product workbook", "error", err)
		return
	}

	h.logger.Info("products exported", "count", len(products))
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
