package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janm2001/cryptofeed/internal/model"
)

func cacheSnapshots() []model.PriceSnapshot {
	return []model.PriceSnapshot{
		{CoinID: "bitcoin", CurrentPrice: 64000},
		{CoinID: "ethereum", CurrentPrice: 3100},
	}
}

func TestMemoryCacheEmpty(t *testing.T) {
	c := NewMemoryCache()

	assert.Empty(t, c.Latest())
	_, ok := c.Get("bitcoin")
	assert.False(t, ok)
	assert.True(t, c.UpdatedAt().IsZero())
}

func TestMemoryCacheReplaceWholesale(t *testing.T) {
	c := NewMemoryCache()

	c.OnSnapshots(cacheSnapshots())
	require.Len(t, c.Latest(), 2)

	s, ok := c.Get("ethereum")
	require.True(t, ok)
	assert.Equal(t, 3100.0, s.CurrentPrice)

	// A new set replaces everything; old entries disappear.
	c.OnSnapshots([]model.PriceSnapshot{{CoinID: "solana", CurrentPrice: 145}})
	latest := c.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, "solana", latest[0].CoinID)

	_, ok = c.Get("bitcoin")
	assert.False(t, ok, "replaced entry still readable")
	assert.False(t, c.UpdatedAt().IsZero())
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	c := NewMemoryCache()
	source := cacheSnapshots()
	c.OnSnapshots(source)

	// Mutating the input after the update must not affect the cache.
	source[0].CurrentPrice = -1
	assert.NotEqual(t, -1.0, c.Latest()[0].CurrentPrice, "cache aliases the caller's slice")

	// Mutating a returned slice must not affect the cache either.
	out := c.Latest()
	out[1].CurrentPrice = -1
	assert.NotEqual(t, -1.0, c.Latest()[1].CurrentPrice, "cache aliases returned slices")
}
