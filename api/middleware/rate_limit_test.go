package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type memoryCounter struct {
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCounter) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	if m.counts[key] == 1 {
		m.ttls[key] = ttl
	}
	return m.counts[key], nil
}

func (m *memoryCounter) RateLimitKey(scope string) string {
	return "hl:rate_limit:" + scope
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	store := newMemoryCounter()
	policy := NewRateLimitPolicy("Webhook", time.Minute, 2)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
		req.RemoteAddr = "203.0.113.7:52100"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if ttl := store.ttls["hl:rate_limit:webhook:ip:203.0.113.7"]; ttl != time.Minute {
		t.Fatalf("expected window ttl on first hit, got %s", ttl)
	}
}

func TestRateLimitKeysByUserWhenAuthenticated(t *testing.T) {
	store := newMemoryCounter()
	handler := RateLimit(NewRateLimitPolicy("checkout", time.Minute, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, user := range []string{"buyer-a", "buyer-b"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", user, resp.Code)
		}
	}
	if _, ok := store.counts["hl:rate_limit:checkout:user:buyer-a"]; !ok {
		t.Fatalf("expected per-user counter, got %v", store.counts)
	}
}

func TestRateLimitFailsOpenOnCounterError(t *testing.T) {
	store := newMemoryCounter()
	store.err = errors.New("redis down")
	handler := RateLimit(NewRateLimitPolicy("webhook", time.Minute, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected request to pass, got %d", resp.Code)
	}
}
