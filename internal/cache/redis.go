package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janm2001/cryptofeed/internal/model"
)

// RedisMirror publishes the latest price per coin to Redis so sibling
// services can read them without touching the upstream API. Failures are
// logged and never fatal; the mirror is strictly best-effort.
type RedisMirror struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// mirrorEntry is the JSON value stored per coin.
type mirrorEntry struct {
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRedisMirror connects and pings Redis.
func NewRedisMirror(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisMirror, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisMirror{rdb: rdb, ttl: ttl, logger: logger}, nil
}

// Close releases the Redis client.
func (m *RedisMirror) Close() error {
	return m.rdb.Close()
}

func lastKey(coinID string) string { return "price:last:" + coinID }

// OnSnapshots mirrors each snapshot under price:last:<coinId> with TTL.
// Implements broadcast.Observer.
func (m *RedisMirror) OnSnapshots(snapshots []model.PriceSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := m.rdb.Pipeline()
	for _, s := range snapshots {
		entry := mirrorEntry{
			Price:     s.CurrentPrice,
			Change24h: s.PriceChangePct24h,
			UpdatedAt: s.LastUpdated,
		}
		b, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		pipe.Set(ctx, lastKey(s.CoinID), b, m.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Warn("redis mirror update failed", "error", err, "coins", len(snapshots))
	}
}

// Get reads one mirrored price back; used by the health endpoint and tests.
func (m *RedisMirror) Get(ctx context.Context, coinID string) (price float64, ok bool) {
	b, err := m.rdb.Get(ctx, lastKey(coinID)).Bytes()
	if err != nil {
		return 0, false
	}
	var entry mirrorEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return 0, false
	}
	return entry.Price, true
}
