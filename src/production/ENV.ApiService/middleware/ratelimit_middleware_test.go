package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(limit int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/data", NewRateLimiter(limit, window).Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestRateLimiter_AllowsUpToLimitThenRejects(t *testing.T) {
	router := limitedRouter(3, time.Minute)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/data", nil))
		assert.Equal(t, http.StatusOK, rr.Code, "request %d should pass", i+1)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	// A different client still has its full budget.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)

	assert.True(t, rl.Allow("c"))
	assert.True(t, rl.Allow("c"))
	assert.False(t, rl.Allow("c"))

	time.Sleep(120 * time.Millisecond)
	assert.True(t, rl.Allow("c"))
}

func TestRateLimiter_PrunesStaleClients(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	rl.Allow("old-client")
	time.Sleep(50 * time.Millisecond)
	rl.Allow("new-client")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	_, oldPresent := rl.clients["old-client"]
	_, newPresent := rl.clients["new-client"]
	assert.False(t, oldPresent)
	assert.True(t, newPresent)
}
