package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	logger "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Logger"
	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
	validator "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Validator"
	metrics "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.ApiService/metrics"
	interfaces "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Repository/Interfaces"
)

// IngestController handles sensor pushes. A push runs rate limiting,
// then the auth guard, then validation, then the store append; the
// first failing stage terminates the request. Repeated identical pushes
// create repeated rows: the ingestion path is deliberately not
// idempotent.
type IngestController struct {
	readingRepo interfaces.ReadingRepository
	validator   *validator.Validator
	logger      *logger.Logger
	metrics     *metrics.Provider
}

// NewIngestController creates a new ingest controller
func NewIngestController(readingRepo interfaces.ReadingRepository, v *validator.Validator, log *logger.Logger, m *metrics.Provider) *IngestController {
	return &IngestController{
		readingRepo: readingRepo,
		validator:   v,
		logger:      log.WithComponent("ingest"),
		metrics:     m,
	}
}

// RegisterRoutes registers the ingestion route. The guard and the
// stricter ingest rate ceiling are supplied by the caller so their
// order is wired in one place; the rate limiter runs first.
func (c *IngestController) RegisterRoutes(api *gin.RouterGroup, ingestLimit, guard gin.HandlerFunc) {
	api.POST("/readings", ingestLimit, guard, c.CreateReading)
}

func (c *IngestController) CreateReading(ctx *gin.Context) {
	var payload envmodels.PushPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		c.metrics.IncRejected("bad_body")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	reading, verr := c.validator.Validate(payload)
	if verr != nil {
		c.metrics.IncRejected(verr.Code)
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": verr.Message,
			"code":  verr.Code,
			"field": verr.Field,
		})
		return
	}

	stored, err := c.readingRepo.CreateReading(ctx, *reading)
	if err != nil {
		// Store detail stays server-side; the producer retries on its own.
		c.logger.ErrorWithError(err, "Failed to store reading")
		c.metrics.IncStoreFailure()
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store reading"})
		return
	}

	c.metrics.IncAccepted()
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": stored})
}
