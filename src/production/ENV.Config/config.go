package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all API service configuration. It is constructed once at
// process start and passed by reference; components never read the
// environment themselves.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig holds the readings store connection settings
type DatabaseConfig struct {
	URI            string        `json:"uri"`
	Database       string        `json:"database"`
	Collection     string        `json:"collection"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// AuthConfig holds the shared secret gating the ingestion path
type AuthConfig struct {
	PushSecret string `json:"-"`
}

// RateLimitConfig holds the two request ceilings applied at the API
// boundary: a coarse global one and a stricter one on ingestion.
type RateLimitConfig struct {
	GlobalLimit  int           `json:"global_limit"`
	GlobalWindow time.Duration `json:"global_window"`
	IngestLimit  int           `json:"ingest_limit"`
	IngestWindow time.Duration `json:"ingest_window"`
}

// CORSConfig holds browser-consumer origin settings
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// IngestorConfig holds configuration for the MQTT bridge service that
// pushes broker traffic into the API.
type IngestorConfig struct {
	Server      ServerConfig  `json:"server"`
	Logging     LoggingConfig `json:"logging"`
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"-"`
	UseTLS      bool          `json:"use_tls"`
	CACertPath  string        `json:"ca_cert_path"`
	Topic       string        `json:"topic"`
	ClientID    string        `json:"client_id"`
	SharedGroup string        `json:"shared_group"`
	SourceTag   string        `json:"source_tag"`

	ApiServiceURL string `json:"api_service_url"`
	PushSecret    string `json:"-"`
}

// Load loads the API service configuration from environment variables
// with fallback defaults. A .env file is honored when present.
func Load() (*Config, error) {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URI:            getEnv("MONGODB_URI", ""),
			Database:       getEnv("MONGODB_DB", "envreadings"),
			Collection:     getEnv("MONGODB_COLLECTION", "readings"),
			ConnectTimeout: getDuration("MONGODB_CONNECT_TIMEOUT", 20*time.Second),
		},
		Auth: AuthConfig{
			PushSecret: getEnv("PUSH_API_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			GlobalLimit:  getInt("RATE_LIMIT_GLOBAL", 120),
			GlobalWindow: getDuration("RATE_LIMIT_GLOBAL_WINDOW", time.Minute),
			IngestLimit:  getInt("RATE_LIMIT_INGEST", 12),
			IngestWindow: getDuration("RATE_LIMIT_INGEST_WINDOW", time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadIngestorConfig loads configuration for the MQTT bridge service.
func LoadIngestorConfig() (*IngestorConfig, error) {
	_ = godotenv.Load()

	config := &IngestorConfig{
		Server: ServerConfig{
			Port:         getEnv("INGESTOR_PORT", "9003"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		BrokerHost:  getEnv("BROKER_HOST", "localhost"),
		BrokerPort:  getInt("BROKER_PORT", 1883),
		BrokerUser:  getEnv("BROKER_USER", ""),
		BrokerPass:  getEnv("BROKER_PASS", ""),
		UseTLS:      getBool("BROKER_TLS", false),
		CACertPath:  getEnv("BROKER_CA_FILE", ""),
		Topic:       getEnv("MQTT_TOPIC", "sensors/env"),
		ClientID:    getEnv("MQTT_CLIENT_ID", "env-ingestor"),
		SharedGroup: getEnv("MQTT_SHARED_GROUP", ""),
		SourceTag:   getEnv("INGESTOR_SOURCE_TAG", "mqtt"),

		ApiServiceURL: getEnv("API_SERVICE_URL", "http://localhost:8080"),
		PushSecret:    getEnv("PUSH_API_SECRET", ""),
	}

	if config.PushSecret == "" {
		return nil, fmt.Errorf("PUSH_API_SECRET is required")
	}
	if config.ApiServiceURL == "" {
		return nil, fmt.Errorf("API_SERVICE_URL is required")
	}

	return config, nil
}

// Validate validates the API service configuration.
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.Auth.PushSecret == "" {
		return fmt.Errorf("PUSH_API_SECRET is required")
	}
	if c.RateLimit.GlobalLimit <= 0 || c.RateLimit.IngestLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.RateLimit.GlobalWindow <= 0 || c.RateLimit.IngestWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}
	return nil
}

// GetBrokerURL returns the MQTT broker URL for the bridge service.
func (c *IngestorConfig) GetBrokerURL() string {
	scheme := "tcp"
	if c.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.BrokerHost, c.BrokerPort)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "TRUE":
		return true
	case "0", "false", "FALSE":
		return false
	}
	log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
