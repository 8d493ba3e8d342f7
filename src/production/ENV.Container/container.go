package container

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	config "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Config"
	logger "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Logger"
)

// Container manages the API service's dependencies and their lifecycle:
// configuration, logger and the Mongo client behind the readings store.
type Container struct {
	config *config.Config
	logger *logger.Logger

	mu     sync.Mutex
	client *mongo.Client
}

// IngestorContainer manages dependencies for the MQTT bridge service.
type IngestorContainer struct {
	config *config.IngestorConfig
	logger *logger.Logger
}

// NewApiContainer loads configuration and builds the logger for the API
// service. The store connection is established lazily.
func NewApiContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger.NewLogger(&cfg.Logging),
	}, nil
}

// NewIngestorContainer loads configuration and builds the logger for
// the MQTT bridge service.
func NewIngestorContainer() (*IngestorContainer, error) {
	cfg, err := config.LoadIngestorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load ingestor configuration: %w", err)
	}

	return &IngestorContainer{
		config: cfg,
		logger: logger.NewLogger(&cfg.Logging),
	}, nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetConfig returns the ingestor configuration
func (c *IngestorContainer) GetConfig() *config.IngestorConfig {
	return c.config
}

// GetLogger returns the logger
func (c *IngestorContainer) GetLogger() *logger.Logger {
	return c.logger
}

// GetReadingCollection connects to Mongo on first use and returns the
// readings collection.
func (c *Container) GetReadingCollection(ctx context.Context) (*mongo.Collection, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(c.config.Database.Database).Collection(c.config.Database.Collection), nil
}

// Ping verifies the store connection. Used by the health endpoint.
func (c *Container) Ping(ctx context.Context) error {
	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

func (c *Container) getClient(ctx context.Context) (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.config.Database.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(c.config.Database.URI))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	c.client = client
	return c.client, nil
}

// Shutdown disconnects the store client.
func (c *Container) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		if err := c.client.Disconnect(ctx); err != nil {
			c.logger.ErrorWithError(err, "Failed to disconnect from MongoDB")
		}
		c.client = nil
	}
}
