// Package api provides interfaces for dependency injection
package api

import "context"

// Runner runs a server until its context is cancelled
type Runner interface {
	// Run serves requests until ctx is done, then shuts down gracefully
	Run(ctx context.Context) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServer creates a server answering lookups from tables
	CreateServer(tables TableCatalog, config ServerConfig) Runner
}
