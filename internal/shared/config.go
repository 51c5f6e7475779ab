package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/vidx/internal/models"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Engine      EngineConfig       `toml:"engine"`
	Server      ServerConfig       `toml:"server"`
	Database    DatabaseConfig     `toml:"database"`
	List        ListConfig         `toml:"list"`
	DevEngine   DevEngineConfig    `toml:"devengine"`
	Preferences models.Preferences `toml:"preferences"`
}

// EngineConfig locates the download engine.
type EngineConfig struct {
	URL                   string `toml:"url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// RequestTimeout returns the per-call timeout, or zero for none.
func (c EngineConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ListConfig tunes the task list.
type ListConfig struct {
	PageSize         int `toml:"page_size"`
	BatchConcurrency int `toml:"batch_concurrency"`
}

// DevEngineConfig tunes the simulated transfers of the development engine.
type DevEngineConfig struct {
	TickRate     float64 `toml:"tick_rate"`
	SegmentStep  int     `toml:"segment_step"`
	SegmentBytes int64   `toml:"segment_bytes"`
}

// Validate reports settings that would leave the application unusable.
func (c *Config) Validate() error {
	if c.Engine.URL == "" {
		return fmt.Errorf("%w: engine.url is required", ErrInvalidConfig)
	}
	if c.List.PageSize <= 0 {
		return fmt.Errorf("%w: list.page_size must be positive", ErrInvalidConfig)
	}
	if c.List.BatchConcurrency <= 0 {
		return fmt.Errorf("%w: list.batch_concurrency must be positive", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a TOML configuration file from the specified path on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
