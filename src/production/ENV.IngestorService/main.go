package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	container "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Container"
	"gitlab.com/terrasense1/env.sensor_server/src/production/ENV.IngestorService/client"
	ingestor "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.IngestorService/ingestor"
)

func main() {
	ctr, err := container.NewIngestorContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}

	logger := ctr.GetLogger()
	logger.Info("Starting MQTT Ingestor Service")

	config := ctr.GetConfig()

	apiClient := client.NewAPIClient(config.ApiServiceURL, config.PushSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ing := ingestor.New(config, apiClient, logger)
	if err := ing.Start(ctx); err != nil {
		logger.FatalWithError(err, "Failed to start MQTT ingestor")
	}
	defer ing.Stop()

	go startHealthServer(ctr, ing, apiClient)

	logger.Info("MQTT ingestor running... press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")
	cancel()
}

// startHealthServer exposes the bridge's own liveness: broker and API
// reachability plus the breaker state.
func startHealthServer(ctr *container.IngestorContainer, ing *ingestor.Ingestor, apiClient *client.APIClient) {
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		mqttStatus := "disconnected"
		if ing.IsConnected() {
			mqttStatus = "connected"
		}

		apiStatus := "disconnected"
		if err := apiClient.Health(ctx); err == nil {
			apiStatus = "connected"
		}

		status := "healthy"
		code := http.StatusOK
		if mqttStatus != "connected" || apiStatus != "connected" {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": map[string]string{
				"mqtt":        mqttStatus,
				"api_service": apiStatus,
			},
			"circuit_breaker": apiClient.GetCircuitBreakerStatus(),
		})
	})

	port := ctr.GetConfig().Server.Port
	logger := ctr.GetLogger()
	logger.Info("Health server starting on port " + port)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.FatalWithError(err, "Failed to start health server")
	}
}
