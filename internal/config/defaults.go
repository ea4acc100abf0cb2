package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL       = "https://api.coingecko.com/api/v3"
	DefaultAPITimeout    = 10 * time.Second
	DefaultMaxRetries    = 2
	DefaultRateWindow    = 60 * time.Second
	DefaultRateQuota     = 30
	DefaultMinSpacing    = 1200 * time.Millisecond
	DefaultPollInterval  = 30 * time.Second
	DefaultTopN          = 10
	DefaultCurrency      = "usd"
	DefaultHistoryEvery  = 1 * time.Hour
	DefaultStreamAddr    = ":7300"
	DefaultWriteTimeout  = 5 * time.Second
	DefaultMaxLineBytes  = 64 * 1024
	DefaultDatagramAddr  = ":7301"
	DefaultSubscriberTTL = 90 * time.Second
	DefaultSweepInterval = 30 * time.Second
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
	DefaultRedisTTL      = 5 * time.Minute
	DefaultHealthPort    = 8080
	DefaultHealthPath    = "/health"
)

func (c *FeedConfig) applyDefaults() {
	// Upstream defaults
	if c.Upstream.RestURL == "" {
		c.Upstream.RestURL = DefaultRestURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultAPITimeout
	}
	if c.Upstream.MaxRetries == 0 {
		c.Upstream.MaxRetries = DefaultMaxRetries
	}
	if c.Upstream.RateWindow == 0 {
		c.Upstream.RateWindow = DefaultRateWindow
	}
	if c.Upstream.RateQuota == 0 {
		c.Upstream.RateQuota = DefaultRateQuota
	}
	if c.Upstream.MinSpacing == 0 {
		c.Upstream.MinSpacing = DefaultMinSpacing
	}

	// Feed cycle defaults
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = DefaultPollInterval
	}
	if c.Feed.TopN == 0 {
		c.Feed.TopN = DefaultTopN
	}
	if c.Feed.Currency == "" {
		c.Feed.Currency = DefaultCurrency
	}
	if c.Feed.HistoryInterval == 0 {
		c.Feed.HistoryInterval = DefaultHistoryEvery
	}
	if c.Feed.HistoryTopK == 0 {
		c.Feed.HistoryTopK = c.Feed.TopN
	}

	// Stream transport defaults
	if c.Stream.ListenAddr == "" {
		c.Stream.ListenAddr = DefaultStreamAddr
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.MaxLineBytes == 0 {
		c.Stream.MaxLineBytes = DefaultMaxLineBytes
	}

	// Datagram transport defaults
	if c.Datagram.ListenAddr == "" {
		c.Datagram.ListenAddr = DefaultDatagramAddr
	}
	if c.Datagram.SubscriberTTL == 0 {
		c.Datagram.SubscriberTTL = DefaultSubscriberTTL
	}
	if c.Datagram.SweepInterval == 0 {
		c.Datagram.SweepInterval = DefaultSweepInterval
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Redis defaults
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}
