package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRateLimiter はRateLimiterのトークンバケット動作を検証する。
func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("バースト分までは許可され超過分は拒否されること", func(t *testing.T) {
		t.Parallel()

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl := NewRateLimiter(1, 3)
		rl.now = func() time.Time { return base }

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("client"), "%d回目は許可されるべき", i+1)
		}
		assert.False(t, rl.Allow("client"))
		assert.True(t, rl.Allow("other"), "別キーは独立して許可されるべき")
	})

	t.Run("時間経過でトークンが補充されること", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl := NewRateLimiter(1, 1)
		rl.now = func() time.Time { return now }

		require.True(t, rl.Allow("client"))
		require.False(t, rl.Allow("client"))

		now = now.Add(time.Second)
		assert.True(t, rl.Allow("client"))
	})

	t.Run("アイドル状態のリミッターが破棄されること", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl := NewRateLimiter(10, 10)
		rl.now = func() time.Time { return now }

		rl.Allow("old")
		now = now.Add(5 * time.Minute)
		rl.Allow("recent")
		now = now.Add(6 * time.Minute)

		rl.Cleanup()
		assert.Equal(t, 1, rl.Len())
	})
}

// TestRateLimiterHandler はレート制限ミドルウェアを検証する。
func TestRateLimiterHandler(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0.001, 2)
	router := gin.New()
	router.Use(rl.Handler())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, serve().Code)
	assert.Equal(t, http.StatusOK, serve().Code)

	w := serve()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "リクエストが多すぎます")
}
