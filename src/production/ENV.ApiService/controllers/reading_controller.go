package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	aggregator "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Aggregator"
	logger "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Logger"
	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
	interfaces "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Repository/Interfaces"
)

const (
	defaultRecentLimit = 100
	// maxRecentLimit caps recent queries regardless of what the caller asks for.
	maxRecentLimit = 1000
)

// ReadingController serves the dashboard-facing read endpoints.
type ReadingController struct {
	readingRepo interfaces.ReadingRepository
	logger      *logger.Logger
}

// NewReadingController creates a new reading controller
func NewReadingController(readingRepo interfaces.ReadingRepository, log *logger.Logger) *ReadingController {
	return &ReadingController{
		readingRepo: readingRepo,
		logger:      log.WithComponent("query"),
	}
}

// RegisterRoutes registers the query routes
func (c *ReadingController) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/readings/recent", c.GetRecentReadings)
	api.GET("/readings/latest", c.GetLatestReading)
	api.GET("/stats/today", c.GetTodayStats)
}

func (c *ReadingController) GetRecentReadings(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultRecentLimit)))
	if err != nil || limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	readings, err := c.readingRepo.GetRecentReadings(ctx, limit)
	if err != nil {
		c.logger.ErrorWithError(err, "Failed to query recent readings")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query readings"})
		return
	}

	// The store answers newest first; charts want oldest first. The
	// reorder belongs here, not in the repository.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	if readings == nil {
		readings = []envmodels.Reading{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(readings),
		"data":    readings,
	})
}

func (c *ReadingController) GetLatestReading(ctx *gin.Context) {
	reading, err := c.readingRepo.GetLatestReading(ctx)
	if err != nil {
		c.logger.ErrorWithError(err, "Failed to query latest reading")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query readings"})
		return
	}

	if reading == nil {
		// An empty store is a valid answer, not an error.
		ctx.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": reading})
}

func (c *ReadingController) GetTodayStats(ctx *gin.Context) {
	// "Today" is the server-local calendar day. Producers and consumers
	// do not negotiate a timezone with us.
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	readings, err := c.readingRepo.GetReadingsByTimeRange(ctx, start, now)
	if err != nil {
		c.logger.ErrorWithError(err, "Failed to query readings for stats")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	window := aggregator.Compute(readings, start, now)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": window})
}
