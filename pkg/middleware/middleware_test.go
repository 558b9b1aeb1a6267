package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ledger/pkg/config"
	"github.com/wyfcoding/ledger/pkg/logger"
	"github.com/wyfcoding/ledger/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(context.Context, string, ratelimit.Limit) (*ratelimit.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ratelimit.Result{Allowed: s.allowed, RetryAfter: time.Second}, nil
}

func serve(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLoggingMiddlewarePropagatesTraceID(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.TraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := serve(r, http.MethodGet, "/ping", map[string]string{TraceIDHeader: "trace-123"})
	if seen != "trace-123" {
		t.Errorf("trace id in context = %q", seen)
	}
	if got := rec.Header().Get(TraceIDHeader); got != "trace-123" {
		t.Errorf("response trace header = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinRecoveryMiddleware())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	if rec := serve(r, http.MethodGet, "/panic", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	tests := []struct {
		name    string
		limiter ratelimit.RateLimiter
		want    int
	}{
		{"allowed", stubLimiter{allowed: true}, http.StatusOK},
		{"rejected", stubLimiter{allowed: false}, http.StatusTooManyRequests},
		{"fail open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimitMiddleware(tt.limiter, cfg))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
			if rec := serve(r, http.MethodGet, "/x", nil); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
