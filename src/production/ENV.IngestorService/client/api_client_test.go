package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(baseURL string) *APIClient {
	c := NewAPIClient(baseURL, "s3cret")
	c.retryDelay = time.Millisecond
	return c
}

func TestPushReading_SendsSecretAndBody(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := fastClient(srv.URL).PushReading(context.Background(), PushReadingRequest{
		Temperature: 23.5,
		Humidity:    61,
		Source:      "mqtt",
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Contains(t, gotBody, `"temperature":23.5`)
	assert.Contains(t, gotBody, `"source":"mqtt"`)
}

func TestPushReading_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := fastClient(srv.URL).PushReading(context.Background(), PushReadingRequest{Temperature: 20, Humidity: 50})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPushReading_ValidationRejectionIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"temperature out of range"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := fastClient(srv.URL).PushReading(context.Background(), PushReadingRequest{Temperature: 150, Humidity: 50})

	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPushReading_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := fastClient(srv.URL).PushReading(context.Background(), PushReadingRequest{Temperature: 20, Humidity: 50})

	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls)) // initial attempt + 3 retries
}

func TestCircuitBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	c.circuitBreaker.maxFailures = 2

	_ = c.PushReading(context.Background(), PushReadingRequest{Temperature: 20, Humidity: 50})

	status := c.GetCircuitBreakerStatus()
	assert.Equal(t, "open", status["state"])

	// With the breaker open, the next push fails without reaching the server.
	err := c.PushReading(context.Background(), PushReadingRequest{Temperature: 20, Humidity: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, fastClient(srv.URL).Health(context.Background()))
}
