// Package di provides dependency injection container
package di

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ssargent/shredder/pkg/api"     //nolint:depguard
	"github.com/ssargent/shredder/pkg/catalog" //nolint:depguard
	"github.com/ssargent/shredder/pkg/config"
	"github.com/ssargent/shredder/pkg/image"
	"github.com/ssargent/shredder/pkg/logging"
)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *zap.Logger
	catalog       *catalog.Catalog
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container using the
// default configuration
func NewContainer() *Container {
	return &Container{config: config.DefaultConfig()}
}

// LoadConfig replaces the configuration with the file at path
func (c *Container) LoadConfig(path string) error {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	c.SetConfig(cfg)
	return nil
}

// SetConfig replaces the configuration. Dependencies built from the old
// configuration are kept.
func (c *Container) SetConfig(cfg *config.Config) {
	c.config = cfg
}

// Config returns the current configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger, building it on first use
func (c *Container) Logger() (*zap.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	logger, err := logging.New(c.config.Logging)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

// SetLogger allows overriding the logger (for testing)
func (c *Container) SetLogger(logger *zap.Logger) {
	c.logger = logger
}

// ImageOptions returns the image load options the configuration describes
func (c *Container) ImageOptions() image.OpenOptions {
	opts := image.OpenOptions{
		Mode:           image.LoadMode(c.config.Image.LoadMode),
		VerifyChecksum: c.config.Image.VerifyChecksum,
		MaxChainLength: c.config.Lookup.MaxChainLength,
	}
	if c.logger != nil {
		opts.Logger = c.logger
	}
	return opts
}

// Catalog returns the table catalog, opening it on first use
func (c *Container) Catalog() (*catalog.Catalog, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}

	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	dir := c.config.CatalogDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	cat, err := catalog.Open(dir, catalog.Options{
		Image:  c.ImageOptions(),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	c.catalog = cat
	return cat, nil
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() (api.ServerFactory, error) {
	if c.serverFactory != nil {
		return c.serverFactory, nil
	}
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}
	c.serverFactory = api.NewServerFactory(logger)
	return c.serverFactory, nil
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// ServerConfig returns the API server configuration
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Addr:      c.config.Addr(),
		APIKey:    c.config.Security.APIKey,
		RateLimit: c.config.Security.RateLimit,
		RateBurst: c.config.Security.RateBurst,
	}
}

// Close releases the catalog and flushes the logger
func (c *Container) Close() error {
	var errs []error
	if c.catalog != nil {
		errs = append(errs, c.catalog.Close())
		c.catalog = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errors.Join(errs...)
}
