package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRateLimit          = 5.0
	DefaultRateBurst          = 5
	DefaultFeedMode           = "targeted"
	DefaultFeedBufferSize     = 100000
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultExpirations        = 6
	DefaultStddevs            = 2.0
	DefaultRefreshInterval    = 5 * time.Minute
	DefaultRetryBackoff       = 15 * time.Second
	DefaultFetchTimeout       = 2 * time.Minute
	DefaultGracePeriod        = 30 * time.Second
	DefaultLaneSize           = 10000
	DefaultSnapshotTTL        = 60 * time.Second
	DefaultPublishInterval    = 1 * time.Second
	DefaultModelInterval      = 1 * time.Second
	DefaultRedisAddr          = "localhost:6379"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 2 * time.Second
	DefaultArchiveBufferSize  = 20000
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

func (c *HydratorConfig) applyDefaults() {
	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = DefaultRateLimit
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = DefaultRateBurst
	}

	// Feed defaults
	if c.Feed.Mode == "" {
		c.Feed.Mode = DefaultFeedMode
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}

	// Chains defaults
	if c.Chains.Expirations == 0 {
		c.Chains.Expirations = DefaultExpirations
	}
	if c.Chains.Stddevs == 0 {
		c.Chains.Stddevs = DefaultStddevs
	}
	if c.Chains.RefreshInterval == 0 {
		c.Chains.RefreshInterval = DefaultRefreshInterval
	}
	if c.Chains.RetryBackoff == 0 {
		c.Chains.RetryBackoff = DefaultRetryBackoff
	}
	if c.Chains.FetchTimeout == 0 {
		c.Chains.FetchTimeout = DefaultFetchTimeout
	}

	// Store defaults
	if c.Store.GracePeriod == 0 {
		c.Store.GracePeriod = DefaultGracePeriod
	}
	if c.Store.LaneSize == 0 {
		c.Store.LaneSize = DefaultLaneSize
	}

	// Publish defaults
	if c.Publish.TTL == 0 {
		c.Publish.TTL = DefaultSnapshotTTL
	}
	if c.Publish.Interval == 0 {
		c.Publish.Interval = DefaultPublishInterval
	}

	// Model defaults
	if c.Model.Interval == 0 {
		c.Model.Interval = DefaultModelInterval
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}

	// Archive defaults
	if c.Archive.Enabled {
		applyDBDefaults(&c.Archive.Database)
	}
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultArchiveBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
