package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/x", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}

	w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	// one token back after a second
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		c.Set(CtxUserID, c.GetHeader("X-User"))
		c.Next()
	}, rl.RateLimiterMiddleware(KeyByUserOrIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set("X-User", userID)
		return do(r, req).Code
	}

	assert.Equal(t, http.StatusOK, send("u-1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u-1"))
	// same IP, different user
	assert.Equal(t, http.StatusOK, send("u-2"))
}

func TestRateLimiter_SweepDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(5, 5, nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("ip:1")
	now = now.Add(idleTTL / 2)
	rl.allow("ip:2")

	now = now.Add(idleTTL/2 + time.Second)
	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.clients, 1)
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name string
		ct   string
		body string
		want int
	}{
		{name: "json", ct: "application/json; charset=utf-8", body: `{}`, want: http.StatusOK},
		{name: "form", ct: "application/x-www-form-urlencoded", body: "a=b", want: http.StatusUnsupportedMediaType},
		{name: "missing content type", body: `{}`, want: http.StatusUnsupportedMediaType},
		{name: "bodiless", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body == "" {
				req = httptest.NewRequest(http.MethodPost, "/x", nil)
			} else {
				req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			}
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}

			assert.Equal(t, tt.want, do(r, req).Code)
		})
	}
}
