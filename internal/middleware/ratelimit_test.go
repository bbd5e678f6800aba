package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/hitoshi/musicomply/internal/model"
)

func newTestLimiter(t *testing.T, perSec float64, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		AuthRate:        rate.Limit(perSec),
		AuthBurst:       burst,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func authRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestAuthRateLimit_AllowsBurstThenRejects(t *testing.T) {
	rl := newTestLimiter(t, 1, 3)

	calls := 0
	handler := rl.AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, authRequest("10.0.0.1:1234"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authRequest("10.0.0.1:5678"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want positive integer", w.Header().Get("Retry-After"))
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
}

// 別のIPアドレスは独立して制限される
func TestAuthRateLimit_IsolatesClients(t *testing.T) {
	rl := newTestLimiter(t, 0.01, 1)
	handler := rl.AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authRequest("10.0.0.1:1"))
	if w.Code != http.StatusOK {
		t.Fatalf("first client: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, authRequest("10.0.0.2:1"))
	if w.Code != http.StatusOK {
		t.Errorf("second client should not be limited, status = %d", w.Code)
	}

	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	rl.allow("10.0.0.1")
	rl.allow("10.0.0.2")

	rl.cleanup(time.Now().Add(10 * time.Minute))

	if rl.LimiterCount() != 0 {
		t.Errorf("LimiterCount = %d, want 0", rl.LimiterCount())
	}
}

func TestRateLimiter_StopEndsCleanupLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestNewAuthRateLimiterConfig(t *testing.T) {
	cfg := NewAuthRateLimiterConfig(60)
	if cfg.AuthBurst != 60 {
		t.Errorf("AuthBurst = %d, want 60", cfg.AuthBurst)
	}
	if float64(cfg.AuthRate) != 1 {
		t.Errorf("AuthRate = %v, want 1", cfg.AuthRate)
	}

	def := DefaultRateLimiterConfig()
	if def.AuthBurst != 20 {
		t.Errorf("default AuthBurst = %d, want 20", def.AuthBurst)
	}
}
