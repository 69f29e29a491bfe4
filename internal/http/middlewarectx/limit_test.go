package middlewarectx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
)

func TestLimiter_PerUser(t *testing.T) {
	l := middlewarectx.NewLimiter(0.001, 2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.True(t, l.Allow("b"), "other user has its own bucket")
}

func TestLimiter_EvictsIdleBuckets(t *testing.T) {
	l := middlewarectx.NewLimiterWithTTL(0.001, 1, time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	for i := range 100 {
		l.Allow(fmt.Sprintf("user-%d", i))
	}
	assert.Equal(t, 100, l.Len())

	now = now.Add(30 * time.Second)
	assert.False(t, l.Allow("user-0"), "active user keeps its empty bucket")

	now = now.Add(45 * time.Second)
	assert.False(t, l.Allow("user-0"))
	assert.Equal(t, 1, l.Len(), "idle buckets are evicted, the active one stays")

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("user-1"), "evicted user starts with a fresh bucket")
	assert.Equal(t, 1, l.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewLimiter(0.001, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(next)

	do := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/exercise/generate", nil)
		req = req.WithContext(middlewarectx.WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusTooManyRequests, do("u1"))
	assert.Equal(t, http.StatusOK, do("u2"))
}
