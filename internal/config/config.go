// The application's root configuration for the knowledge-graph client.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	instance *Config
	mu       sync.RWMutex
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger"`
	API    APIConfig    `mapstructure:"api"`
	Render RenderConfig `mapstructure:"render"`
	QA     QAConfig     `mapstructure:"qa"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// APIConfig holds settings for the backend HTTP client.
type APIConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RetryCount          int           `mapstructure:"retry_count"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
}

// EngineKind selects the rendering engine implementation.
type EngineKind string

const (
	// EngineMemory keeps render records in process. Headless use and tests.
	EngineMemory EngineKind = "memory"
	// EngineBrowser drives a vis-network page in a real browser over CDP.
	EngineBrowser EngineKind = "browser"
)

// RenderConfig holds settings for the force-directed renderer.
type RenderConfig struct {
	Engine        EngineKind    `mapstructure:"engine"`
	Headless      bool          `mapstructure:"headless"`
	VisLibraryURL string        `mapstructure:"vis_library_url"`
	Physics       bool          `mapstructure:"physics"`
	NodeSize      int           `mapstructure:"node_size"`
	SnapshotCache int           `mapstructure:"snapshot_cache"`
	AttachTimeout time.Duration `mapstructure:"attach_timeout"`
}

// QAConfig holds settings for the conversational question-answering session.
type QAConfig struct {
	// HistoryWindow bounds how many trailing messages are replayed to the
	// backend for conversational context.
	HistoryWindow int `mapstructure:"history_window"`
}

// SetDefaults registers default values so the app runs with a minimal config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "smart-brain")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.retry_count", 0)
	v.SetDefault("api.max_idle_conns", 100)
	v.SetDefault("api.max_idle_conns_per_host", 20)
	v.SetDefault("api.idle_conn_timeout", 30*time.Second)

	v.SetDefault("render.engine", string(EngineMemory))
	v.SetDefault("render.headless", true)
	v.SetDefault("render.vis_library_url", "https://unpkg.com/vis-network/standalone/umd/vis-network.min.js")
	v.SetDefault("render.physics", true)
	v.SetDefault("render.node_size", 25)
	v.SetDefault("render.snapshot_cache", 16)
	v.SetDefault("render.attach_timeout", 15*time.Second)

	v.SetDefault("qa.history_window", 5)
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	switch c.Render.Engine {
	case EngineMemory, EngineBrowser:
	default:
		return fmt.Errorf("render.engine must be %q or %q, got %q", EngineMemory, EngineBrowser, c.Render.Engine)
	}
	if c.QA.HistoryWindow < 0 {
		return fmt.Errorf("qa.history_window must not be negative")
	}
	if c.Render.SnapshotCache <= 0 {
		return fmt.Errorf("render.snapshot_cache must be positive")
	}
	return nil
}

// Load unmarshals the Viper state into the global configuration instance.
func Load(v *viper.Viper) error {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	Set(&cfg)
	return nil
}

// Set stores the configuration instance. Exposed for tests and bootstrap.
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// Get returns the loaded configuration instance.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		panic("configuration not initialized; call config.Load() in the root command")
	}
	return instance
}
