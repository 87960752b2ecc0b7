package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(t *testing.T, cfg RateLimitConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         3,
		CleanupInterval:   time.Minute,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d within burst was blocked", i+1)
		}
	}
	if rl.Allow("client") {
		t.Error("request beyond burst was allowed")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})

	if !rl.Allow("a") {
		t.Fatal("first request for key a blocked")
	}
	if rl.Allow("a") {
		t.Error("second request for key a allowed")
	}
	if !rl.Allow("b") {
		t.Error("key b affected by key a's consumption")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 6000, // 100 tokens/s so the test can wait briefly
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})

	if !rl.Allow("client") {
		t.Fatal("first request blocked")
	}
	if rl.Allow("client") {
		t.Fatal("bucket not empty after burst")
	}
	time.Sleep(50 * time.Millisecond)
	if !rl.Allow("client") {
		t.Error("bucket did not refill")
	}
}

func rateLimitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(Identity(IdentityConfig{TrustProxyHeader: true}))
	r.Use(RateLimit(rl))
	r.POST("/write", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 1,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	r := rateLimitedRouter(rl)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/write", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("no X-RateLimit-Limit header on allowed request")
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/write", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", second.Header().Get("Retry-After"))
	}
}

func TestRateLimitKeyedByIdentity(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 1,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	r := rateLimitedRouter(rl)

	send := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		if email != "" {
			req.Header.Set(TrustedEmailHeader, email)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// Two users behind the same source address each get their own bucket.
	if code := send("a@example.com"); code != http.StatusOK {
		t.Fatalf("user a status = %d", code)
	}
	if code := send("b@example.com"); code != http.StatusOK {
		t.Fatalf("user b status = %d, want independent budget", code)
	}
	if code := send("a@example.com"); code != http.StatusTooManyRequests {
		t.Fatalf("user a second request status = %d, want 429", code)
	}
}
