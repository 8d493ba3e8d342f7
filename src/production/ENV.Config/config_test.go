package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("PUSH_API_SECRET", "s3cret")
	// Clear anything the surrounding environment might define.
	for _, key := range []string{"PORT", "LOG_LEVEL", "RATE_LIMIT_GLOBAL", "RATE_LIMIT_INGEST", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "envreadings", cfg.Database.Database)
	assert.Equal(t, "readings", cfg.Database.Collection)
	assert.Equal(t, "s3cret", cfg.Auth.PushSecret)
	assert.Equal(t, 120, cfg.RateLimit.GlobalLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.GlobalWindow)
	assert.Equal(t, 12, cfg.RateLimit.IngestLimit)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_INGEST", "5")
	t.Setenv("RATE_LIMIT_INGEST_WINDOW", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://dash.example.com, https://alt.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.RateLimit.IngestLimit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.IngestWindow)
	assert.Equal(t, []string{"https://dash.example.com", "https://alt.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_RequiredValues(t *testing.T) {
	t.Run("missing mongo uri", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "")
		t.Setenv("PUSH_API_SECRET", "s3cret")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MONGODB_URI")
	})

	t.Run("missing push secret", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
		t.Setenv("PUSH_API_SECRET", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PUSH_API_SECRET")
	})
}

func TestLoadIngestorConfig(t *testing.T) {
	t.Setenv("PUSH_API_SECRET", "s3cret")
	t.Setenv("BROKER_HOST", "broker.local")
	t.Setenv("BROKER_TLS", "true")

	cfg, err := LoadIngestorConfig()
	require.NoError(t, err)

	assert.Equal(t, "sensors/env", cfg.Topic)
	assert.Equal(t, "mqtt", cfg.SourceTag)
	assert.Equal(t, "tcps://broker.local:1883", cfg.GetBrokerURL())
}

func TestLoadIngestorConfig_RequiresSecret(t *testing.T) {
	t.Setenv("PUSH_API_SECRET", "")
	_, err := LoadIngestorConfig()
	require.Error(t, err)
}
