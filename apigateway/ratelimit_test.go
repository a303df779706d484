package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func TestRateLimiter_NilClientFailsOpen(t *testing.T) {
	limit := RateLimit{Name: "auth", PerMinute: 1, Burst: 1}

	var nilLimiter *RateLimiter
	if allowed, _ := nilLimiter.Allow(limit, "ip:1.2.3.4"); !allowed {
		t.Error("nil limiter must allow")
	}

	limiter := &RateLimiter{Logger: logrus.New()}
	if allowed, _ := limiter.Allow(limit, "ip:1.2.3.4"); !allowed {
		t.Error("limiter without redis must allow")
	}
}

func TestRateLimiter_ZeroBudgetDisablesLimit(t *testing.T) {
	limiter := &RateLimiter{Logger: logrus.New()}
	if allowed, _ := limiter.Allow(RateLimit{Name: "off"}, "user:1"); !allowed {
		t.Error("a zero per-minute budget must disable the limit")
	}
}

func TestRateLimitMiddleware_PassthroughWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &RateLimiter{Logger: logrus.New()}

	r := gin.New()
	r.GET("/ping", limiter.Middleware(RateLimit{Name: "recipes", PerMinute: 10, Burst: 5}), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestClientIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.9:1234"
	if got := clientIdentity(c); got != "ip:10.0.0.9" {
		t.Errorf("expected ip identity, got %s", got)
	}

	c.Set("user_id", uint(42))
	if got := clientIdentity(c); got != "user:42" {
		t.Errorf("expected user identity, got %s", got)
	}
}
