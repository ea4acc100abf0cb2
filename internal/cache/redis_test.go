package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janm2001/cryptofeed/internal/model"
)

func startMirror(t *testing.T, ttl time.Duration) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	m, err := NewRedisMirror(context.Background(), mr.Addr(), "", 0, ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, mr
}

func TestRedisMirrorRoundTrip(t *testing.T) {
	m, _ := startMirror(t, time.Minute)

	m.OnSnapshots([]model.PriceSnapshot{
		{CoinID: "bitcoin", CurrentPrice: 64000, PriceChangePct24h: -1.4, LastUpdated: time.Now()},
		{CoinID: "ethereum", CurrentPrice: 3100, PriceChangePct24h: 0.8, LastUpdated: time.Now()},
	})

	price, ok := m.Get(context.Background(), "bitcoin")
	require.True(t, ok, "bitcoin not mirrored")
	assert.Equal(t, 64000.0, price)

	_, ok = m.Get(context.Background(), "dogecoin")
	assert.False(t, ok, "unmirrored coin reported a hit")
}

func TestRedisMirrorKeysAndTTL(t *testing.T) {
	m, mr := startMirror(t, time.Minute)

	m.OnSnapshots([]model.PriceSnapshot{{CoinID: "bitcoin", CurrentPrice: 64000}})

	require.True(t, mr.Exists("price:last:bitcoin"))
	assert.Equal(t, time.Minute, mr.TTL("price:last:bitcoin"))
}

func TestRedisMirrorExpiry(t *testing.T) {
	m, mr := startMirror(t, time.Minute)

	m.OnSnapshots([]model.PriceSnapshot{{CoinID: "bitcoin", CurrentPrice: 64000}})

	mr.FastForward(2 * time.Minute)
	_, ok := m.Get(context.Background(), "bitcoin")
	assert.False(t, ok, "entry readable after ttl expiry")
}

func TestRedisMirrorOverwrite(t *testing.T) {
	m, _ := startMirror(t, time.Minute)

	m.OnSnapshots([]model.PriceSnapshot{{CoinID: "bitcoin", CurrentPrice: 64000}})
	m.OnSnapshots([]model.PriceSnapshot{{CoinID: "bitcoin", CurrentPrice: 65250}})

	price, ok := m.Get(context.Background(), "bitcoin")
	require.True(t, ok)
	assert.Equal(t, 65250.0, price)
}

func TestNewRedisMirrorUnreachable(t *testing.T) {
	_, err := NewRedisMirror(context.Background(), "127.0.0.1:1", "", 0, time.Minute, nil)
	assert.Error(t, err)
}
