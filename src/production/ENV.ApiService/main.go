package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/terrasense1/env.sensor_server/src/production/ENV.ApiService/controllers"
	metrics "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.ApiService/metrics"
	"gitlab.com/terrasense1/env.sensor_server/src/production/ENV.ApiService/middleware"
	container "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Container"
	validator "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Validator"
	implementation "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Repository/Implementation"
)

func main() {
	ctr, err := container.NewApiContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting API Service")

	config := ctr.GetConfig()

	// Connect to the readings store up front so a bad URI fails fast.
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coll, err := ctr.GetReadingCollection(startupCtx)
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to readings store")
	}
	readingRepo := implementation.NewMongoReadingRepository(coll)

	metricsProvider := metrics.NewProvider(prometheus.DefaultRegisterer)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, _ interface{}) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}))
	router.Use(metricsProvider.Middleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// The coarse ceiling covers every /api route; ingestion carries its
	// own stricter one on top. Both run before the guard.
	globalLimiter := middleware.NewRateLimiter(config.RateLimit.GlobalLimit, config.RateLimit.GlobalWindow)
	ingestLimiter := middleware.NewRateLimiter(config.RateLimit.IngestLimit, config.RateLimit.IngestWindow)
	guard := middleware.PushAuthMiddleware(config.Auth.PushSecret, logger)

	api := router.Group("/api", globalLimiter.Middleware())

	ingestController := controllers.NewIngestController(readingRepo, validator.New(), logger, metricsProvider)
	ingestController.RegisterRoutes(api, ingestLimiter.Middleware(), guard)

	readingController := controllers.NewReadingController(readingRepo, logger)
	readingController.RegisterRoutes(api)

	healthController := controllers.NewHealthController(ctr.Ping)
	healthController.RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := config.Server.Port
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("API service running... press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
