package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestLoggingTransport_Headers(t *testing.T) {
	var gotUA, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := newLoggingTransport(http.DefaultTransport, "bazaar-test/1.0")

	t.Run("defaults", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		resp, err := transport.RoundTrip(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if gotUA != "bazaar-test/1.0" {
			t.Errorf("expected User-Agent bazaar-test/1.0, got %q", gotUA)
		}
		if _, err := uuid.Parse(gotID); err != nil {
			t.Errorf("expected generated UUID request id, got %q", gotID)
		}
		if req.Header.Get("User-Agent") != "" {
			t.Error("caller's request must not be mutated")
		}
	})

	t.Run("context request id and explicit user agent", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		req.Header.Set("User-Agent", "custom/2.0")
		resp, err := transport.RoundTrip(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if gotUA != "custom/2.0" {
			t.Errorf("expected existing User-Agent preserved, got %q", gotUA)
		}
		if gotID != "req-123" {
			t.Errorf("expected request id from context, got %q", gotID)
		}
	})
}
