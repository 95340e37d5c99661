package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joao-fontenele/reefmart/internal/catalog"
	"github.com/joao-fontenele/reefmart/internal/domain"
	"github.com/joao-fontenele/reefmart/internal/session"
)

const testSecret = "cart-test-secret"

type memStore struct {
	mu      sync.Mutex
	items   []domain.CartItem
	nextID  int
	failAdd error
	// beforeUpdate runs under the lock ahead of every quantity change and
	// stands in for a concurrent request touching the line.
	beforeUpdate func(items []domain.CartItem) []domain.CartItem
}

func (s *memStore) Add(ctx context.Context, item *domain.CartItem) error {
	if s.failAdd != nil {
		return s.failAdd
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = fmt.Sprintf("line-%d", s.nextID)
	s.items = append(s.items, *item)
	return nil
}

func (s *memStore) List(ctx context.Context, userKey string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []domain.CartItem{}
	for _, item := range s.items {
		if item.UserKey == userKey {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *memStore) Get(ctx context.Context, userKey, id string) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.UserKey == userKey && item.ID == id {
			return &item, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateQuantity(ctx context.Context, userKey, id string, from, to int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeUpdate != nil {
		s.items = s.beforeUpdate(s.items)
	}
	for i := range s.items {
		if s.items[i].UserKey == userKey && s.items[i].ID == id && s.items[i].Quantity == from {
			s.items[i].Quantity = to
			s.items[i].TotalPrice = domain.LineTotal(s.items[i].Price, to)
			updated := s.items[i]
			return &updated, nil
		}
	}
	return nil, nil
}

func (s *memStore) Delete(ctx context.Context, userKey string, ids []string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := make(map[string]bool)
	for _, id := range ids {
		selected[id] = true
	}
	removed := []domain.CartItem{}
	kept := s.items[:0]
	for _, item := range s.items {
		if item.UserKey == userKey && selected[item.ID] {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return removed, nil
}

type fakeStock struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	down     bool
}

func newFakeStock(products ...domain.Product) *fakeStock {
	s := &fakeStock{products: make(map[string]*domain.Product)}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}
	return s
}

func (s *fakeStock) level(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *fakeStock) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.down {
		return nil, errors.New("connection refused")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakeStock) DecrementStock(ctx context.Context, id string, quantity int) (*domain.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	if p.Stock < quantity {
		return nil, &catalog.InsufficientStockError{ProductID: id, Available: p.Stock}
	}
	p.Stock -= quantity
	return &domain.StockLevel{ProductID: id, Stock: p.Stock}, nil
}

func (s *fakeStock) IncrementStock(ctx context.Context, id string, quantity int) (*domain.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	p.Stock += quantity
	return &domain.StockLevel{ProductID: id, Stock: p.Stock}, nil
}

type fixture struct {
	mux   *http.ServeMux
	store *memStore
	stock *fakeStock
	token string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := &memStore{}
	stock := newFakeStock(
		domain.Product{ID: "p1", Name: "Clownfish", Category: "Saltwater", Price: 1500, Stock: 5, Image: "https://img/clown.png"},
		domain.Product{ID: "p2", Name: "Betta", Category: "Freshwater", Price: 800, Stock: 1, Image: "https://img/betta.png"},
	)

	handler, err := NewHandler(store, stock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}

	sessions := session.NewManager(testSecret, time.Hour)
	token, err := sessions.Issue(&domain.User{Key: "jane@reef_io", Email: "jane@reef.io", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	mux := http.NewServeMux()
	handler.Register(mux, sessions)

	return &fixture{mux: mux, store: store, stock: stock, token: token}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_HandleAdd(t *testing.T) {
	t.Run("adds line and decrements stock", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":2}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var item domain.CartItem
		if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if item.UserKey != "jane@reef_io" {
			t.Errorf("expected user key jane@reef_io, got %s", item.UserKey)
		}
		if item.Name != "Clownfish" || item.TotalPrice != 3000 {
			t.Errorf("unexpected snapshot: %+v", item)
		}
		if got := f.stock.level("p1"); got != 3 {
			t.Errorf("expected stock 3, got %d", got)
		}
	})

	t.Run("rejects quantity above stock", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/cart", `{"product_id":"p2","quantity":2}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["available"] != float64(1) {
			t.Errorf("expected 1 available, got %v", resp["available"])
		}
		if len(f.store.items) != 0 {
			t.Errorf("expected no cart lines, got %d", len(f.store.items))
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		f := newFixture(t)
		for _, body := range []string{`{"product_id":"p1","quantity":0}`, `{"quantity":1}`, `not json`} {
			if rec := f.do(http.MethodPost, "/cart", body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400 for %s, got %d", body, rec.Code)
			}
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(t)
		if rec := f.do(http.MethodPost, "/cart", `{"product_id":"nope","quantity":1}`); rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.stock.down = true
		if rec := f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":1}`); rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}
	})

	t.Run("releases stock when line cannot be stored", func(t *testing.T) {
		f := newFixture(t)
		f.store.failAdd = errors.New("disk full")

		if rec := f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":2}`); rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		if got := f.stock.level("p1"); got != 5 {
			t.Errorf("expected stock restored to 5, got %d", got)
		}
	})

	t.Run("requires session", func(t *testing.T) {
		f := newFixture(t)
		f.token = ""
		if rec := f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":1}`); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleList(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":2}`)
	f.do(http.MethodPost, "/cart", `{"product_id":"p2","quantity":1}`)

	rec := f.do(http.MethodGet, "/cart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.Total != 3800 {
		t.Errorf("expected total 3800, got %d", resp.Total)
	}
}

func TestHandler_HandleUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":2}`)

	t.Run("increase takes more stock", func(t *testing.T) {
		rec := f.do(http.MethodPatch, "/cart/line-1", `{"quantity":4}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var item domain.CartItem
		_ = json.Unmarshal(rec.Body.Bytes(), &item)
		if item.TotalPrice != 6000 {
			t.Errorf("expected total 6000, got %d", item.TotalPrice)
		}
		if got := f.stock.level("p1"); got != 1 {
			t.Errorf("expected stock 1, got %d", got)
		}
	})

	t.Run("increase beyond stock is rejected", func(t *testing.T) {
		if rec := f.do(http.MethodPatch, "/cart/line-1", `{"quantity":9}`); rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("decrease returns stock", func(t *testing.T) {
		if rec := f.do(http.MethodPatch, "/cart/line-1", `{"quantity":1}`); rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if got := f.stock.level("p1"); got != 4 {
			t.Errorf("expected stock 4, got %d", got)
		}
	})

	t.Run("unknown line", func(t *testing.T) {
		if rec := f.do(http.MethodPatch, "/cart/line-9", `{"quantity":1}`); rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleUpdateQuantity_LineChangesMidUpdate(t *testing.T) {
	t.Run("line moved into an order keeps its stock", func(t *testing.T) {
		f := newFixture(t)
		if rec := f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":5}`); rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		// A checkout takes the line after the handler read it.
		f.store.beforeUpdate = func(items []domain.CartItem) []domain.CartItem {
			return items[:0]
		}

		if rec := f.do(http.MethodPatch, "/cart/line-1", `{"quantity":1}`); rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
		if got := f.stock.level("p1"); got != 0 {
			t.Errorf("expected stock 0, got %d", got)
		}
	})

	t.Run("vanished line returns reserved units", func(t *testing.T) {
		f := newFixture(t)
		f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":2}`)
		f.store.beforeUpdate = func(items []domain.CartItem) []domain.CartItem {
			return items[:0]
		}

		if rec := f.do(http.MethodPatch, "/cart/line-1", `{"quantity":4}`); rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
		if got := f.stock.level("p1"); got != 3 {
			t.Errorf("expected stock 3, got %d", got)
		}
	})

	t.Run("concurrent change is recomputed from the stored quantity", func(t *testing.T) {
		f := newFixture(t)
		f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":4}`)
		// Another request lowers the line to 2 and releases 2 units, once.
		fired := false
		f.store.beforeUpdate = func(items []domain.CartItem) []domain.CartItem {
			if !fired {
				fired = true
				items[0].Quantity = 2
				f.stock.products["p1"].Stock += 2
			}
			return items
		}

		if rec := f.do(http.MethodPatch, "/cart/line-1", `{"quantity":1}`); rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := f.stock.level("p1"); got != 4 {
			t.Errorf("expected stock 4, got %d", got)
		}
	})

	t.Run("line that never settles is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":2}`)
		f.store.beforeUpdate = func(items []domain.CartItem) []domain.CartItem {
			items[0].Quantity++
			return items
		}

		if rec := f.do(http.MethodPatch, "/cart/line-1", `{"quantity":1}`); rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleDelete(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":2}`)
	f.do(http.MethodPost, "/cart", `{"product_id":"p2","quantity":1}`)

	rec := f.do(http.MethodDelete, "/cart", `{"ids":["line-1","line-2","line-404"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var removed []domain.CartItem
	_ = json.Unmarshal(rec.Body.Bytes(), &removed)
	if len(removed) != 2 {
		t.Errorf("expected 2 removed lines, got %d", len(removed))
	}
	if f.stock.level("p1") != 5 || f.stock.level("p2") != 1 {
		t.Errorf("expected stock restored, got p1=%d p2=%d", f.stock.level("p1"), f.stock.level("p2"))
	}

	if rec := f.do(http.MethodDelete, "/cart", `{"ids":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty selection, got %d", rec.Code)
	}
}
