package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Strob0t/Tally/internal/logger"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"absent", "", false},
		{"kept", "trace-7f3a.01", true},
		{"longest accepted", strings.Repeat("a", maxRequestIDLen), true},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"space", "has spaces", false},
		{"control char", "abc\x01", false},
		{"non-ascii", "café", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inCtx string
			h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				inCtx = logger.RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.inbound != "" {
				req.Header.Set(headerRequestID, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			out := rec.Header().Get(headerRequestID)
			if out != inCtx {
				t.Fatalf("response id %q differs from context id %q", out, inCtx)
			}
			if tt.keep {
				if out != tt.inbound {
					t.Fatalf("got %q, want inbound id kept", out)
				}
				return
			}
			if _, err := uuid.Parse(out); err != nil {
				t.Fatalf("expected a generated UUID, got %q", out)
			}
		})
	}
}
