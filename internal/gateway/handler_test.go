package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type hitLog struct {
	mu   sync.Mutex
	hits []string
}

func (l *hitLog) add(hit string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = append(l.hits, hit)
}

func (l *hitLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.hits...)
}

// backend records which service received each request.
func backend(t *testing.T, name string, log *hitLog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(name + " " + r.Method + " " + r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"` + name + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, hits *hitLog) *http.ServeMux {
	t.Helper()
	catalog := backend(t, "catalog", hits)
	shop := backend(t, "shop", hits)
	accounts := backend(t, "accounts", hits)

	h := NewHandler(
		NewServiceProxy("catalog", catalog.URL, catalog.Client()),
		NewServiceProxy("shop", shop.URL, shop.Client()),
		NewServiceProxy("accounts", accounts.URL, accounts.Client()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestHandler_Routing(t *testing.T) {
	tests := []struct {
		method  string
		path    string
		service string
	}{
		{http.MethodGet, "/products", "catalog"},
		{http.MethodGet, "/products/search", "catalog"},
		{http.MethodGet, "/products/abc", "catalog"},
		{http.MethodGet, "/categories", "catalog"},
		{http.MethodPost, "/admin/products", "catalog"},
		{http.MethodGet, "/admin/products/export", "catalog"},
		{http.MethodPost, "/admin/products/abc/stock", "catalog"},
		{http.MethodGet, "/cart", "shop"},
		{http.MethodPatch, "/cart/line-1", "shop"},
		{http.MethodPost, "/checkout", "shop"},
		{http.MethodGet, "/orders", "shop"},
		{http.MethodPost, "/orders/abc/received", "shop"},
		{http.MethodPatch, "/admin/orders/abc/status", "shop"},
		{http.MethodGet, "/admin/sales", "shop"},
		{http.MethodPost, "/auth/login", "accounts"},
		{http.MethodGet, "/profile", "accounts"},
		{http.MethodPut, "/profile/address", "accounts"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			hits := &hitLog{}
			mux := newGateway(t, hits)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			want := tt.service + " " + tt.method + " " + tt.path
			if got := hits.all(); len(got) != 1 || got[0] != want {
				t.Errorf("expected %q, got %v", want, got)
			}
		})
	}
}

func TestHandler_InternalStockRoutesHidden(t *testing.T) {
	hits := &hitLog{}
	mux := newGateway(t, hits)

	for _, path := range []string{"/products/abc/stock/decrement", "/products/abc/stock/increment"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"quantity":1}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status 405, got %d", path, rec.Code)
		}
	}
	if got := hits.all(); len(got) != 0 {
		t.Errorf("expected no backend calls, got %v", got)
	}
}

func TestHandler_PreservesDownstreamResponse(t *testing.T) {
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("xlsx-bytes"))
	}))
	defer catalog.Close()

	h := NewHandler(
		NewServiceProxy("catalog", catalog.URL, catalog.Client()),
		NewServiceProxy("shop", "http://unused", http.DefaultClient),
		NewServiceProxy("accounts", "http://unused", http.DefaultClient),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/admin/products/export", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Disposition") != `attachment; filename="products.xlsx"` {
		t.Errorf("expected Content-Disposition to be copied, got %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "xlsx-bytes" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_ServiceUnavailable(t *testing.T) {
	h := NewHandler(
		NewServiceProxy("catalog", "http://unused", http.DefaultClient),
		NewServiceProxy("shop", "http://localhost:99999", &http.Client{}),
		NewServiceProxy("accounts", "http://unused", http.DefaultClient),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "service unavailable" {
		t.Errorf("expected 'service unavailable', got %s", resp["error"])
	}
}
