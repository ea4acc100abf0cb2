package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Upstream.RestURL == "" {
		return errors.New("upstream.rest_url is required")
	}
	if c.Upstream.RateQuota < 1 {
		return errors.New("upstream.rate_quota must be >= 1")
	}
	if c.Upstream.RateWindow <= 0 {
		return errors.New("upstream.rate_window must be positive")
	}
	if c.Upstream.MinSpacing < 0 {
		return errors.New("upstream.min_spacing cannot be negative")
	}

	if c.Feed.PollInterval <= 0 {
		return errors.New("feed.poll_interval must be positive")
	}
	if c.Feed.TopN < 1 {
		return errors.New("feed.top_n must be >= 1")
	}
	if c.Feed.HistoryTopK > c.Feed.TopN {
		return fmt.Errorf("feed.history_top_k (%d) cannot exceed top_n (%d)", c.Feed.HistoryTopK, c.Feed.TopN)
	}

	if c.Stream.ListenAddr == "" {
		return errors.New("stream.listen_addr is required")
	}
	if c.Stream.MaxLineBytes < 1024 {
		return errors.New("stream.max_line_bytes must be >= 1024")
	}
	if c.Datagram.ListenAddr == "" {
		return errors.New("datagram.listen_addr is required")
	}
	if c.Datagram.SubscriberTTL > 0 && c.Datagram.SweepInterval <= 0 {
		return errors.New("datagram.sweep_interval must be positive when subscriber_ttl is set")
	}

	if c.Database.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
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
