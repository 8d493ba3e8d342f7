package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker stops hammering the API service after repeated
// failures and lets a probe through once the reset timeout elapses.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	state        CircuitBreakerState
	failureCount int
	lastFailTime time.Time
	mutex        sync.RWMutex
}

func (cb *CircuitBreaker) canExecute() bool {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		return time.Since(cb.lastFailTime) > cb.resetTimeout
	default:
		return false
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount = 0
	cb.state = StateClosed
}

func (cb *CircuitBreaker) onFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount++
	cb.lastFailTime = time.Now()

	if cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// PushReadingRequest is the body posted to the API's ingestion endpoint.
type PushReadingRequest struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	CreatedAt   string  `json:"created_at,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// permanentError marks responses that retrying cannot fix: validation
// rejections and auth failures are deterministic.
type permanentError struct {
	status int
	body   string
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("API rejected push with status %d: %s", e.status, e.body)
}

// IsPermanent reports whether the API rejected the push in a way a
// retry cannot fix.
func IsPermanent(err error) bool {
	_, ok := err.(*permanentError)
	return ok
}

// APIClient pushes readings into the API service with the shared push
// secret. Producer-side retry-with-backoff lives here; the API itself
// never retries a failed append.
type APIClient struct {
	baseURL        string
	httpClient     *http.Client
	pushSecret     string
	circuitBreaker *CircuitBreaker
	maxRetries     int
	retryDelay     time.Duration
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, pushSecret string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pushSecret: pushSecret,
		circuitBreaker: &CircuitBreaker{
			maxFailures:  5,
			resetTimeout: 30 * time.Second,
			state:        StateClosed,
		},
		maxRetries: 3,
		retryDelay: 1 * time.Second,
	}
}

// PushReading posts one reading to the ingestion endpoint. Transient
// failures (network, 5xx, 429) are retried with exponential backoff;
// 4xx rejections are returned immediately as permanent.
func (c *APIClient) PushReading(ctx context.Context, req PushReadingRequest) error {
	return c.retryWithBackoff(ctx, func() error {
		resp, err := c.makeRequest(ctx, http.MethodPost, "/api/readings", req)
		if err != nil {
			return fmt.Errorf("failed to push reading: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusCreated:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("API returned status %d", resp.StatusCode)
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &permanentError{status: resp.StatusCode, body: string(body)}
		}
	})
}

// Health checks the API service health endpoint.
func (c *APIClient) Health(ctx context.Context) error {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API health returned status %d", resp.StatusCode)
	}
	return nil
}

// GetCircuitBreakerStatus reports the breaker state for health output.
func (c *APIClient) GetCircuitBreakerStatus() map[string]interface{} {
	c.circuitBreaker.mutex.RLock()
	defer c.circuitBreaker.mutex.RUnlock()

	return map[string]interface{}{
		"state":         c.circuitBreaker.state.String(),
		"failure_count": c.circuitBreaker.failureCount,
	}
}

func (c *APIClient) retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if !c.circuitBreaker.canExecute() {
			return fmt.Errorf("circuit breaker is open")
		}

		err := operation()
		if err == nil {
			c.circuitBreaker.onSuccess()
			return nil
		}
		if IsPermanent(err) {
			// The API answered; the push itself is bad. Do not count it
			// against the breaker and do not retry.
			return err
		}

		lastErr = err
		c.circuitBreaker.onFailure()

		if attempt == c.maxRetries {
			break
		}

		delay := time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *APIClient) makeRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.pushSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}
