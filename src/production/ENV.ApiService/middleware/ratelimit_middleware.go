package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// staleAfter is how many windows of inactivity a client entry survives
// before pruning reclaims it.
const staleAfter = 3

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces "at most limit requests per window" per client
// address. Each client gets its own token bucket sized to the full
// window burst; stale clients are pruned inline so the registry does
// not grow without bound.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     int
	window    time.Duration
	lastPrune time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		limit:     limit,
		window:    window,
		lastPrune: time.Now(),
	}
}

// Allow reports whether the client may proceed and consumes one slot if so.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastPrune) > rl.window {
		rl.prune(now)
	}

	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit),
		}
		rl.clients[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Duration(staleAfter) * rl.window)
	for client, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
	rl.lastPrune = now
}

// Middleware rejects over-limit clients with 429 before any further
// processing, authorization included.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
