package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *HydratorConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.Feed.WSURL == "" {
		return errors.New("feed.ws_url is required")
	}
	if c.Feed.Mode != "broad" && c.Feed.Mode != "targeted" {
		return fmt.Errorf("feed.mode must be broad or targeted, got %q", c.Feed.Mode)
	}

	if len(c.Chains.Underlyings) == 0 {
		return errors.New("chains.underlyings must list at least one underlying")
	}
	if c.Chains.Expirations < 1 {
		return errors.New("chains.expirations must be >= 1")
	}
	if c.Chains.Stddevs <= 0 {
		return errors.New("chains.stddevs must be > 0")
	}

	if c.Store.LaneSize < 1 {
		return errors.New("store.lane_size must be >= 1")
	}
	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}

	if c.Publish.TTL <= 0 {
		return errors.New("publish.ttl must be > 0")
	}
	if c.Publish.Interval <= 0 {
		return errors.New("publish.interval must be > 0")
	}
	if c.Model.Interval <= 0 {
		return errors.New("model.interval must be > 0")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
