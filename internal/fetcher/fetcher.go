package fetcher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/janm2001/cryptofeed/internal/model"
)

// Upstream is the slice of the provider client the fetcher needs.
type Upstream interface {
	GetTopMarkets(ctx context.Context, n int, currency string) ([]model.PriceSnapshot, error)
	GetMarketsByIDs(ctx context.Context, ids []string, currency string) ([]model.PriceSnapshot, error)
}

// Config holds fetcher configuration.
type Config struct {
	RateWindow time.Duration // Fixed quota window (default: 60s)
	RateQuota  int           // Max upstream calls per window (default: 30)
	MinSpacing time.Duration // Min gap between any two calls (default: 1.2s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RateWindow: 60 * time.Second,
		RateQuota:  30,
		MinSpacing: 1200 * time.Millisecond,
	}
}

// Stats contains runtime fetcher statistics.
type Stats struct {
	UpstreamCalls  int64
	Fallbacks      int64
	CallsInWindow  int
	CachedCount    int
	LastSuccessAt  time.Time
	LastUpstreamAt time.Time
}

// Fetcher wraps the upstream client with rate limiting and cache fallback.
// Its fetch methods never fail outward: on any upstream error they return
// what the cache holds, which is empty only before the first success.
type Fetcher struct {
	upstream Upstream
	limits   *limiter
	logger   *slog.Logger

	// cache holds the last good top-N sequence. Replaced wholesale on each
	// successful top fetch so readers never see a partially built list.
	cache atomic.Pointer[[]model.PriceSnapshot]

	upstreamCalls atomic.Int64
	fallbacks     atomic.Int64
	lastSuccess   atomic.Int64 // unix micros, 0 = never
}

// New creates a Fetcher.
func New(cfg Config, upstream Upstream, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		upstream: upstream,
		limits:   newLimiter(cfg.RateWindow, cfg.RateQuota, cfg.MinSpacing),
		logger:   logger,
	}
}

// FetchTop returns the top n coins by market cap. On success the cache is
// atomically replaced with the fresh sequence; on any failure the last good
// cache (up to n items) is returned instead.
func (f *Fetcher) FetchTop(ctx context.Context, n int, currency string) []model.PriceSnapshot {
	if err := f.limits.acquire(ctx); err != nil {
		// Cancelled while waiting on the rate limit.
		f.fallbacks.Add(1)
		return f.cachedTop(n)
	}

	f.upstreamCalls.Add(1)
	snapshots, err := f.upstream.GetTopMarkets(ctx, n, currency)
	if err != nil {
		f.logger.Warn("upstream fetch failed, serving cache",
			"error", err,
			"n", n,
			"currency", currency,
		)
		f.fallbacks.Add(1)
		return f.cachedTop(n)
	}

	f.cache.Store(&snapshots)
	f.lastSuccess.Store(time.Now().UnixMicro())

	out := make([]model.PriceSnapshot, len(snapshots))
	copy(out, snapshots)
	return out
}

// FetchByIDs returns snapshots for the given coin ids. On failure it falls
// back to the cached entries matching those ids. The top-N cache is not
// replaced by id-scoped fetches.
func (f *Fetcher) FetchByIDs(ctx context.Context, ids []string, currency string) []model.PriceSnapshot {
	if len(ids) == 0 {
		return nil
	}

	if err := f.limits.acquire(ctx); err != nil {
		f.fallbacks.Add(1)
		return model.FilterByIDs(f.cachedTop(0), ids)
	}

	f.upstreamCalls.Add(1)
	snapshots, err := f.upstream.GetMarketsByIDs(ctx, ids, currency)
	if err != nil {
		f.logger.Warn("upstream fetch by ids failed, serving cache",
			"error", err,
			"ids", len(ids),
		)
		f.fallbacks.Add(1)
		return model.FilterByIDs(f.cachedTop(0), ids)
	}

	f.lastSuccess.Store(time.Now().UnixMicro())
	return snapshots
}

// Cached returns a copy of the current cache contents.
func (f *Fetcher) Cached() []model.PriceSnapshot {
	return f.cachedTop(0)
}

// Stats returns current fetcher statistics.
func (f *Fetcher) Stats() Stats {
	calls, _, lastCall := f.limits.state()

	var lastSuccess time.Time
	if micros := f.lastSuccess.Load(); micros != 0 {
		lastSuccess = time.UnixMicro(micros)
	}

	return Stats{
		UpstreamCalls:  f.upstreamCalls.Load(),
		Fallbacks:      f.fallbacks.Load(),
		CallsInWindow:  calls,
		CachedCount:    len(f.cachedTop(0)),
		LastSuccessAt:  lastSuccess,
		LastUpstreamAt: lastCall,
	}
}

// cachedTop returns up to n cached snapshots (all of them when n <= 0).
// The returned slice is a copy; callers may hold it across cache swaps.
func (f *Fetcher) cachedTop(n int) []model.PriceSnapshot {
	p := f.cache.Load()
	if p == nil {
		return nil
	}
	cached := *p
	if n > 0 && n < len(cached) {
		cached = cached[:n]
	}
	out := make([]model.PriceSnapshot, len(cached))
	copy(out, cached)
	return out
}
