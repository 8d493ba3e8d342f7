package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StorePinger reports whether the readings store is reachable.
type StorePinger func(ctx context.Context) error

// HealthController exposes liveness for orchestrators and the bridge
// service's health probe.
type HealthController struct {
	ping StorePinger
}

// NewHealthController creates a new health controller
func NewHealthController(ping StorePinger) *HealthController {
	return &HealthController{ping: ping}
}

// RegisterRoutes registers the health route
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", c.Health)
}

func (c *HealthController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := "healthy"
	store := "connected"
	code := http.StatusOK
	if err := c.ping(checkCtx); err != nil {
		status = "unhealthy"
		store = "disconnected"
		code = http.StatusServiceUnavailable
	}

	ctx.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  gin.H{"store": store},
	})
}
