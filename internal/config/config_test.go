package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-feedd
upstream:
  rest_url: https://api.coingecko.com/api/v3
  rate_quota: 25
stream:
  listen_addr: ":7300"
datagram:
  listen_addr: ":7301"
auth:
  tokens:
    abc123: alice
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-feedd" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-feedd")
	}
	if cfg.Upstream.RestURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("Upstream.RestURL = %q, want %q", cfg.Upstream.RestURL, "https://api.coingecko.com/api/v3")
	}
	if cfg.Upstream.RateQuota != 25 {
		t.Errorf("Upstream.RateQuota = %d, want 25", cfg.Upstream.RateQuota)
	}
	if cfg.Auth.Tokens["abc123"] != "alice" {
		t.Errorf("Auth.Tokens[abc123] = %q, want %q", cfg.Auth.Tokens["abc123"], "alice")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "cg-secret")

	yaml := `
instance:
  id: test-feedd
upstream:
  api_key: ${TEST_API_KEY}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Upstream.APIKey != "cg-secret" {
		t.Errorf("Upstream.APIKey = %q, want %q", cfg.Upstream.APIKey, "cg-secret")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FEED_SET", "value")
	t.Setenv("FEED_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"${FEED_SET}", "value"},
		{"${FEED_UNSET}", ""},
		{"${FEED_UNSET:-fallback}", "fallback"},
		{"${FEED_EMPTY:-fallback}", "fallback"},
		{"${FEED_SET:-fallback}", "value"},
		{"pa$$word", "pa$$word"},
		{"host: ${FEED_SET}:8080", "host: value:8080"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-feedd
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Upstream.RestURL != DefaultRestURL {
		t.Errorf("Upstream.RestURL = %q, want default %q", cfg.Upstream.RestURL, DefaultRestURL)
	}
	if cfg.Upstream.RateWindow != DefaultRateWindow {
		t.Errorf("Upstream.RateWindow = %v, want default %v", cfg.Upstream.RateWindow, DefaultRateWindow)
	}
	if cfg.Upstream.MinSpacing != DefaultMinSpacing {
		t.Errorf("Upstream.MinSpacing = %v, want default %v", cfg.Upstream.MinSpacing, DefaultMinSpacing)
	}
	if cfg.Feed.TopN != DefaultTopN {
		t.Errorf("Feed.TopN = %d, want default %d", cfg.Feed.TopN, DefaultTopN)
	}
	if cfg.Feed.HistoryTopK != DefaultTopN {
		t.Errorf("Feed.HistoryTopK = %d, want top_n default %d", cfg.Feed.HistoryTopK, DefaultTopN)
	}
	if cfg.Stream.ListenAddr != DefaultStreamAddr {
		t.Errorf("Stream.ListenAddr = %q, want default %q", cfg.Stream.ListenAddr, DefaultStreamAddr)
	}
	if cfg.Datagram.SubscriberTTL != DefaultSubscriberTTL {
		t.Errorf("Datagram.SubscriberTTL = %v, want default %v", cfg.Datagram.SubscriberTTL, DefaultSubscriberTTL)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want default %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestHistoryTopKFollowsTopN(t *testing.T) {
	yaml := `
instance:
  id: test-feedd
feed:
  top_n: 25
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Feed.HistoryTopK != 25 {
		t.Errorf("Feed.HistoryTopK = %d, want 25 (follows top_n)", cfg.Feed.HistoryTopK)
	}
}

func TestValidate(t *testing.T) {
	valid := func() FeedConfig {
		return FeedConfig{
			Instance: InstanceConfig{ID: "test"},
			Upstream: UpstreamConfig{
				RestURL:    "https://api.example.com",
				RateWindow: time.Minute,
				RateQuota:  30,
				MinSpacing: time.Second,
			},
			Feed:     PollConfig{PollInterval: 30 * time.Second, TopN: 10, HistoryTopK: 10},
			Stream:   StreamConfig{ListenAddr: ":7300", MaxLineBytes: 64 * 1024},
			Datagram: DatagramConfig{ListenAddr: ":7301", SubscriberTTL: 90 * time.Second, SweepInterval: 30 * time.Second},
			Health:   HealthConfig{Port: 8090},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*FeedConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *FeedConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *FeedConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing upstream url",
			mutate:  func(c *FeedConfig) { c.Upstream.RestURL = "" },
			wantErr: "upstream.rest_url is required",
		},
		{
			name:    "zero rate quota",
			mutate:  func(c *FeedConfig) { c.Upstream.RateQuota = 0 },
			wantErr: "upstream.rate_quota must be >= 1",
		},
		{
			name:    "negative min spacing",
			mutate:  func(c *FeedConfig) { c.Upstream.MinSpacing = -time.Second },
			wantErr: "upstream.min_spacing cannot be negative",
		},
		{
			name: "history_top_k exceeds top_n",
			mutate: func(c *FeedConfig) {
				c.Feed.TopN = 5
				c.Feed.HistoryTopK = 10
			},
			wantErr: "feed.history_top_k (10) cannot exceed top_n (5)",
		},
		{
			name: "ttl without sweep interval",
			mutate: func(c *FeedConfig) {
				c.Datagram.SweepInterval = 0
			},
			wantErr: "datagram.sweep_interval must be positive when subscriber_ttl is set",
		},
		{
			name: "db enabled with missing password",
			mutate: func(c *FeedConfig) {
				c.Database = DBConfig{Enabled: true, Host: "localhost", Name: "db", User: "user", MaxConns: 10}
			},
			wantErr: "database.password is required",
		},
		{
			name: "db disabled skips db validation",
			mutate: func(c *FeedConfig) {
				c.Database = DBConfig{Enabled: false}
			},
			wantErr: "",
		},
		{
			name: "redis enabled without addr",
			mutate: func(c *FeedConfig) {
				c.Redis = RedisConfig{Enabled: true}
			},
			wantErr: "redis.addr is required when redis is enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
