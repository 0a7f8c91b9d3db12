// Package api provides factory implementations for dependency injection
package api

import "go.uber.org/zap"

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct {
	logger *zap.Logger
}

// NewServerFactory creates a new server factory
func NewServerFactory(logger *zap.Logger) ServerFactory {
	return &DefaultServerFactory{logger: logger}
}

// CreateServer creates a server with its own metrics registry
func (f *DefaultServerFactory) CreateServer(tables TableCatalog, config ServerConfig) Runner {
	return NewServer(tables, config, NewMetrics(NewRegistry()), f.logger)
}
