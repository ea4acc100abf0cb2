package fetcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/janm2001/cryptofeed/internal/model"
)

// fakeUpstream is a scriptable Upstream for tests.
type fakeUpstream struct {
	topCalls  atomic.Int64
	idCalls   atomic.Int64
	snapshots []model.PriceSnapshot
	err       error
}

func (f *fakeUpstream) GetTopMarkets(ctx context.Context, n int, currency string) ([]model.PriceSnapshot, error) {
	f.topCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if n > len(f.snapshots) {
		n = len(f.snapshots)
	}
	out := make([]model.PriceSnapshot, n)
	copy(out, f.snapshots[:n])
	return out, nil
}

func (f *fakeUpstream) GetMarketsByIDs(ctx context.Context, ids []string, currency string) ([]model.PriceSnapshot, error) {
	f.idCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return model.FilterByIDs(f.snapshots, ids), nil
}

func testSnapshots() []model.PriceSnapshot {
	return []model.PriceSnapshot{
		{CoinID: "bitcoin", Symbol: "btc", CurrentPrice: 64000, LastUpdated: time.Now()},
		{CoinID: "ethereum", Symbol: "eth", CurrentPrice: 3100, LastUpdated: time.Now()},
		{CoinID: "solana", Symbol: "sol", CurrentPrice: 145, LastUpdated: time.Now()},
	}
}

func openConfig() Config {
	return Config{RateWindow: time.Minute, RateQuota: 1000, MinSpacing: 0}
}

func TestFetchTopSuccess(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	f := New(openConfig(), upstream, nil)

	got := f.FetchTop(context.Background(), 2, "usd")
	if len(got) != 2 {
		t.Fatalf("FetchTop returned %d snapshots, want 2", len(got))
	}
	if got[0].CoinID != "bitcoin" {
		t.Errorf("got[0].CoinID = %q, want %q", got[0].CoinID, "bitcoin")
	}

	stats := f.Stats()
	if stats.UpstreamCalls != 1 {
		t.Errorf("UpstreamCalls = %d, want 1", stats.UpstreamCalls)
	}
	if stats.Fallbacks != 0 {
		t.Errorf("Fallbacks = %d, want 0", stats.Fallbacks)
	}
	if stats.CachedCount != 2 {
		t.Errorf("CachedCount = %d, want 2", stats.CachedCount)
	}
}

func TestFetchTopFallsBackToCache(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	f := New(openConfig(), upstream, nil)

	// Warm the cache.
	if got := f.FetchTop(context.Background(), 3, "usd"); len(got) != 3 {
		t.Fatalf("warmup FetchTop returned %d snapshots, want 3", len(got))
	}

	// Upstream breaks; the cached sequence is served instead.
	upstream.err = errors.New("upstream down")
	got := f.FetchTop(context.Background(), 3, "usd")
	if len(got) != 3 {
		t.Fatalf("FetchTop under failure returned %d snapshots, want 3 from cache", len(got))
	}
	if got[0].CoinID != "bitcoin" {
		t.Errorf("got[0].CoinID = %q, want cached %q", got[0].CoinID, "bitcoin")
	}

	stats := f.Stats()
	if stats.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", stats.Fallbacks)
	}
}

func TestFetchTopColdStartFailure(t *testing.T) {
	upstream := &fakeUpstream{err: errors.New("upstream down")}
	f := New(openConfig(), upstream, nil)

	got := f.FetchTop(context.Background(), 5, "usd")
	if len(got) != 0 {
		t.Errorf("FetchTop with empty cache returned %d snapshots, want 0", len(got))
	}
}

func TestFetchTopTrimsCacheToN(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	f := New(openConfig(), upstream, nil)

	f.FetchTop(context.Background(), 3, "usd")

	upstream.err = errors.New("upstream down")
	got := f.FetchTop(context.Background(), 1, "usd")
	if len(got) != 1 {
		t.Fatalf("FetchTop(1) under failure returned %d snapshots, want 1", len(got))
	}
}

func TestFetchByIDsFallbackFiltersCache(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	f := New(openConfig(), upstream, nil)

	f.FetchTop(context.Background(), 3, "usd")

	upstream.err = errors.New("upstream down")
	got := f.FetchByIDs(context.Background(), []string{"ethereum", "dogecoin"}, "usd")
	if len(got) != 1 {
		t.Fatalf("FetchByIDs under failure returned %d snapshots, want 1", len(got))
	}
	if got[0].CoinID != "ethereum" {
		t.Errorf("got[0].CoinID = %q, want %q", got[0].CoinID, "ethereum")
	}
}

func TestFetchByIDsDoesNotReplaceTopCache(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	f := New(openConfig(), upstream, nil)

	f.FetchTop(context.Background(), 3, "usd")
	f.FetchByIDs(context.Background(), []string{"solana"}, "usd")

	cached := f.Cached()
	if len(cached) != 3 {
		t.Errorf("cache has %d snapshots after id fetch, want 3", len(cached))
	}
}

func TestFetchByIDsEmptyInput(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	f := New(openConfig(), upstream, nil)

	got := f.FetchByIDs(context.Background(), nil, "usd")
	if got != nil {
		t.Errorf("FetchByIDs(nil) = %v, want nil", got)
	}
	if calls := upstream.idCalls.Load(); calls != 0 {
		t.Errorf("upstream called %d times for empty ids, want 0", calls)
	}
}

func TestFetchTopRespectsRateLimit(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	// One call allowed per long window; the second fetch cannot reach
	// upstream before its context expires and must serve cache.
	f := New(Config{RateWindow: time.Hour, RateQuota: 1, MinSpacing: 0}, upstream, nil)

	f.FetchTop(context.Background(), 3, "usd")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got := f.FetchTop(ctx, 3, "usd")

	if len(got) != 3 {
		t.Fatalf("rate-limited FetchTop returned %d snapshots, want 3 from cache", len(got))
	}
	if calls := upstream.topCalls.Load(); calls != 1 {
		t.Errorf("upstream called %d times, want 1 (second blocked by quota)", calls)
	}
	stats := f.Stats()
	if stats.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", stats.Fallbacks)
	}
}

func TestCachedReturnsCopy(t *testing.T) {
	upstream := &fakeUpstream{snapshots: testSnapshots()}
	f := New(openConfig(), upstream, nil)

	f.FetchTop(context.Background(), 3, "usd")

	a := f.Cached()
	a[0].CurrentPrice = -1

	b := f.Cached()
	if b[0].CurrentPrice == -1 {
		t.Error("mutating a returned slice leaked into the cache")
	}
}
