package config

import "time"

// FeedConfig is the root configuration for a feed daemon instance.
type FeedConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Feed     PollConfig     `yaml:"feed"`
	Stream   StreamConfig   `yaml:"stream"`
	Datagram DatagramConfig `yaml:"datagram"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DBConfig       `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// UpstreamConfig holds price provider API settings.
type UpstreamConfig struct {
	RestURL    string        `yaml:"rest_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`

	// Rate limiting toward the provider.
	RateWindow time.Duration `yaml:"rate_window"` // Fixed quota window (default: 60s)
	RateQuota  int           `yaml:"rate_quota"`  // Max calls per window (default: 30)
	MinSpacing time.Duration `yaml:"min_spacing"` // Min gap between any two calls (default: 1.2s)
}

// PollConfig holds broadcast cycle settings.
type PollConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`    // Fetch + distribute cadence (default: 30s)
	TopN            int           `yaml:"top_n"`            // Coins fetched per cycle (default: 10)
	Currency        string        `yaml:"currency"`         // Quote currency (default: "usd")
	HistoryInterval time.Duration `yaml:"history_interval"` // Min gap between history snapshots (default: 1h)
	HistoryTopK     int           `yaml:"history_top_k"`    // Coins persisted per snapshot (default: top_n)
}

// StreamConfig holds the persistent TCP transport settings.
type StreamConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`    // e.g., ":7300"
	WriteTimeout time.Duration `yaml:"write_timeout"`  // Per-message write deadline
	MaxLineBytes int           `yaml:"max_line_bytes"` // Max size of one framed message
}

// DatagramConfig holds the UDP broadcast transport settings.
type DatagramConfig struct {
	ListenAddr    string        `yaml:"listen_addr"`    // e.g., ":7301"
	SubscriberTTL time.Duration `yaml:"subscriber_ttl"` // Evict after no heartbeat for this long (0 = never)
	SweepInterval time.Duration `yaml:"sweep_interval"` // How often to scan for stale subscribers
}

// AuthConfig holds the static token table consulted by the stream Auth
// handler. Token issuance and hashing live outside this daemon.
type AuthConfig struct {
	Tokens map[string]string `yaml:"tokens"` // token -> identity
}

// DBConfig holds the price-history database connection.
type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the optional latest-price mirror settings.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // Expiry on mirrored keys
}

// HealthConfig holds the ops HTTP endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
