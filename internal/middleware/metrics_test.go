package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeRecorder) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method, route, statusCode})
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	rec := &fakeRecorder{}
	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Get("/api/directory/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	tests := []struct {
		path       string
		wantRoute  string
		wantStatus int
	}{
		{"/api/directory/42", "/api/directory/{id}", http.StatusNotFound},
		{"/api/directory/43", "/api/directory/{id}", http.StatusNotFound},
		{"/no/such/path", unmatchedRoute, http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(rec.requests) != len(tests) {
		t.Fatalf("expected %d records, got %d", len(tests), len(rec.requests))
	}
	for i, tt := range tests {
		got := rec.requests[i]
		if got.route != tt.wantRoute || got.status != tt.wantStatus || got.method != http.MethodGet {
			t.Errorf("%s: got %+v, want route=%s status=%d", tt.path, got, tt.wantRoute, tt.wantStatus)
		}
	}
}

func TestMetricsMiddleware_DefaultStatusOK(t *testing.T) {
	rec := &fakeRecorder{}
	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if len(rec.requests) != 1 || rec.requests[0].status != http.StatusOK || rec.requests[0].route != "/health" {
		t.Errorf("unexpected records: %+v", rec.requests)
	}
}
