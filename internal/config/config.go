package config

import "time"

// HydratorConfig is the root configuration for a hydrator instance.
type HydratorConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Feed     FeedConfig     `yaml:"feed"`
	Chains   ChainsConfig   `yaml:"chains"`
	Store    StoreConfig    `yaml:"store"`
	Publish  PublishConfig  `yaml:"publish"`
	Model    ModelConfig    `yaml:"model"`
	Redis    RedisConfig    `yaml:"redis"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this hydrator.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds options reference API settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RateLimit  float64       `yaml:"rate_limit"` // requests per second
	RateBurst  int           `yaml:"rate_burst"`
}

// FeedConfig holds trade stream settings.
type FeedConfig struct {
	WSURL              string        `yaml:"ws_url"`
	Mode               string        `yaml:"mode"` // "broad" or "targeted"
	BufferSize         int           `yaml:"buffer_size"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
}

// ChainsConfig holds epoch refresh settings.
type ChainsConfig struct {
	Underlyings     []string      `yaml:"underlyings"`
	Expirations     int           `yaml:"expirations"` // next-N per underlying
	Stddevs         float64       `yaml:"stddevs"`     // strike window half-width
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
}

// StoreConfig holds epoch store settings.
type StoreConfig struct {
	GracePeriod time.Duration `yaml:"grace_period"` // retired epoch retention
	LaneSize    int           `yaml:"lane_size"`    // per-underlying hydrator ring
}

// PublishConfig holds snapshot publication settings.
type PublishConfig struct {
	TTL      time.Duration `yaml:"ttl"`      // snapshot and pointer lifetime
	Interval time.Duration `yaml:"interval"` // republish cadence
}

// ModelConfig holds derived model settings.
type ModelConfig struct {
	Interval time.Duration `yaml:"interval"` // recompute cadence
}

// RedisConfig holds the keyed-store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ArchiveConfig holds Postgres archival settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics and health server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
