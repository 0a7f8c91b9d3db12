package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the shredder configuration
type Config struct {
	DataDir  string   `yaml:"data_dir" validate:"required"`
	Port     int      `yaml:"port" validate:"min=1,max=65535"`
	Bind     string   `yaml:"bind" validate:"required"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
	Lookup   Lookup   `yaml:"lookup"`
	Image    Image    `yaml:"image"`
}

// Security contains security-related configuration
type Security struct {
	// APIKey protects the HTTP API. Empty disables authentication.
	APIKey string `yaml:"api_key"`
	// RateLimit caps API requests per second across all clients. 0 disables it.
	RateLimit float64 `yaml:"rate_limit,omitempty" validate:"min=0"`
	RateBurst int     `yaml:"rate_burst,omitempty" validate:"min=0"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
	// Filename sends logs to a rotated file instead of stderr.
	Filename   string `yaml:"filename,omitempty"`
	MaxSize    int    `yaml:"max_size,omitempty" validate:"min=0"` // megabytes
	MaxDays    int    `yaml:"max_days,omitempty" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups,omitempty" validate:"min=0"`
}

// Lookup contains lookup engine configuration
type Lookup struct {
	// MaxChainLength caps a single chain walk. 0 uses the engine default,
	// -1 disables the cap.
	MaxChainLength int `yaml:"max_chain_length" validate:"min=-1"`
}

// Image contains table image configuration
type Image struct {
	LoadMode       string `yaml:"load_mode" validate:"oneof=mmap read"`
	VerifyChecksum bool   `yaml:"verify_checksum"`
	Compression    string `yaml:"compression" validate:"oneof=none zstd lz4"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Lookup: Lookup{
			MaxChainLength: 0,
		},
		Image: Image{
			LoadMode:       "mmap",
			VerifyChecksum: true,
			Compression:    "none",
		},
	}
}

// Validate checks field values
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CatalogDir returns the directory of the table catalog
func (c *Config) CatalogDir() string {
	return filepath.Join(c.DataDir, "catalog")
}

// TablesDir returns the directory images are built into by default
func (c *Config) TablesDir() string {
	return filepath.Join(c.DataDir, "tables")
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	if err := config.Validate(); err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./shredder.yaml"
	}

	// For Linux/macOS, use ~/.config/shredder/config.yaml
	configDir := filepath.Join(homeDir, ".config", "shredder")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
