package api

import (
	"time"

	"github.com/ssargent/shredder/pkg/catalog"
	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/image"
)

// Lookup response headers
const (
	HeaderLength = "X-Shredder-Length"
	HeaderBucket = "X-Shredder-Bucket"
	HeaderProbes = "X-Shredder-Probes"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr            string
	APIKey          string  // Empty disables authentication
	RateLimit       float64 // Requests per second; 0 disables limiting
	RateBurst       int
	ShutdownTimeout time.Duration
	MetricsInterval time.Duration
}

// TableResponse describes one table
type TableResponse struct {
	catalog.Record
	Loaded bool          `json:"loaded"`
	Mapped bool          `json:"mapped,omitempty"`
	Stats  *htable.Stats `json:"stats,omitempty"`
}

// TableCatalog defines the catalog operations the server needs
type TableCatalog interface {
	List() ([]catalog.Record, error)
	Get(name string) (*catalog.Record, error)
	View(name string, fn func(img *image.Image) error) error
	Loaded() []string
}
