package email

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_HandleSend(t *testing.T) {
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"accepts valid message", `{"to":"nemo@reef.io","subject":"Order Receipt: ORD-1","body":"thanks"}`, http.StatusOK},
		{"rejects bad recipient", `{"to":"not an address","subject":"hi"}`, http.StatusBadRequest},
		{"rejects empty subject", `{"to":"nemo@reef.io","subject":"  "}`, http.StatusBadRequest},
		{"rejects malformed json", `{"to":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
