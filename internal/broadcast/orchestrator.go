package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/janm2001/cryptofeed/internal/history"
	"github.com/janm2001/cryptofeed/internal/model"
)

// PriceFetcher supplies the cycle's snapshot set.
type PriceFetcher interface {
	FetchTop(ctx context.Context, n int, currency string) []model.PriceSnapshot
}

// StreamBroadcaster fans a snapshot set out to stream sessions.
type StreamBroadcaster interface {
	BroadcastSnapshots(snapshots []model.PriceSnapshot)
}

// DatagramBroadcaster sends one snapshot per packet to datagram subscribers.
type DatagramBroadcaster interface {
	BroadcastOne(snapshot model.PriceSnapshot)
}

// Observer is notified after each successful distribution cycle.
type Observer interface {
	OnSnapshots(snapshots []model.PriceSnapshot)
}

// Config holds orchestrator configuration.
type Config struct {
	PollInterval    time.Duration // Fetch + distribute cadence (default: 30s)
	TopN            int           // Coins fetched per cycle (default: 10)
	Currency        string        // Quote currency (default: "usd")
	HistoryInterval time.Duration // Min gap between history snapshots (default: 1h)
	HistoryTopK     int           // Coins persisted per snapshot (default: TopN)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    30 * time.Second,
		TopN:            10,
		Currency:        "usd",
		HistoryInterval: time.Hour,
		HistoryTopK:     10,
	}
}

// Stats contains orchestrator runtime statistics.
type Stats struct {
	Cycles        int64
	EmptyCycles   int64
	LastCycleAt   time.Time
	LastHistoryAt time.Time
	LastKnown     int
}

// Orchestrator drives the periodic fetch + fan-out loop.
type Orchestrator struct {
	cfg       Config
	fetcher   PriceFetcher
	streams   StreamBroadcaster
	datagrams DatagramBroadcaster
	store     history.Store // nil disables history snapshots
	observers []Observer
	logger    *slog.Logger

	// lastKnown is the most recent non-empty snapshot set, replaced
	// wholesale each cycle.
	lastKnown atomic.Pointer[[]model.PriceSnapshot]

	// Cycle-goroutine state; read elsewhere via statsMu.
	statsMu       sync.Mutex
	cycles        int64
	emptyCycles   int64
	lastCycleAt   time.Time
	lastHistoryAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Orchestrator. store may be nil; observers may be empty.
func New(cfg Config, fetcher PriceFetcher, streams StreamBroadcaster, datagrams DatagramBroadcaster, store history.Store, observers []Observer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HistoryTopK <= 0 || cfg.HistoryTopK > cfg.TopN {
		cfg.HistoryTopK = cfg.TopN
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		streams:   streams,
		datagrams: datagrams,
		store:     store,
		observers: observers,
		logger:    logger,
	}
}

// Start begins the cycle loop, running one cycle immediately.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(1)
	go o.run()

	o.logger.Info("broadcast orchestrator started",
		"poll_interval", o.cfg.PollInterval,
		"top_n", o.cfg.TopN,
		"history_interval", o.cfg.HistoryInterval,
	)
	return nil
}

// Stop cancels the loop. In-flight distribution drains on its own; Stop
// waits for the loop goroutine, bounded by ctx.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if o.cancel != nil {
		o.cancel()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("broadcast orchestrator stopped")
		return nil
	case <-ctx.Done():
		o.logger.Warn("broadcast orchestrator stop timed out")
		return ctx.Err()
	}
}

// LastKnown returns a copy of the most recent non-empty snapshot set.
func (o *Orchestrator) LastKnown() []model.PriceSnapshot {
	p := o.lastKnown.Load()
	if p == nil {
		return nil
	}
	out := make([]model.PriceSnapshot, len(*p))
	copy(out, *p)
	return out
}

// Stats returns current statistics.
func (o *Orchestrator) Stats() Stats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return Stats{
		Cycles:        o.cycles,
		EmptyCycles:   o.emptyCycles,
		LastCycleAt:   o.lastCycleAt,
		LastHistoryAt: o.lastHistoryAt,
		LastKnown:     len(o.LastKnownRef()),
	}
}

// LastKnownRef returns the current set without copying; callers must not
// mutate it.
func (o *Orchestrator) LastKnownRef() []model.PriceSnapshot {
	p := o.lastKnown.Load()
	if p == nil {
		return nil
	}
	return *p
}

// run is the cycle loop. Cancellation is checked at the top of each turn.
func (o *Orchestrator) run() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	// Cycle immediately on start.
	o.runCycle()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.runCycle()
		}
	}
}

// runCycle executes one fetch + distribute pass. Nothing in here may kill
// the loop: the fetcher degrades to cache, history errors are logged, and
// per-recipient delivery failures are isolated inside the registries.
func (o *Orchestrator) runCycle() {
	start := time.Now()

	snapshots := o.fetcher.FetchTop(o.ctx, o.cfg.TopN, o.cfg.Currency)

	o.statsMu.Lock()
	o.cycles++
	o.lastCycleAt = start
	o.statsMu.Unlock()

	if len(snapshots) == 0 {
		// Cold start with no cache yet; nothing to distribute.
		o.statsMu.Lock()
		o.emptyCycles++
		o.statsMu.Unlock()
		o.logger.Debug("cycle produced no snapshots")
		return
	}

	o.lastKnown.Store(&snapshots)

	o.persistHistory(snapshots, start)

	o.streams.BroadcastSnapshots(snapshots)
	for _, s := range snapshots {
		o.datagrams.BroadcastOne(s)
	}

	for _, ob := range o.observers {
		ob.OnSnapshots(snapshots)
	}

	o.logger.Debug("cycle complete",
		"coins", len(snapshots),
		"duration", time.Since(start),
	)
}

// persistHistory appends the top-K items when the history interval elapsed
// since the last persisted snapshot. Store errors are logged; the cycle
// continues.
func (o *Orchestrator) persistHistory(snapshots []model.PriceSnapshot, now time.Time) {
	if o.store == nil {
		return
	}

	o.statsMu.Lock()
	due := o.lastHistoryAt.IsZero() || now.Sub(o.lastHistoryAt) >= o.cfg.HistoryInterval
	o.statsMu.Unlock()
	if !due {
		return
	}

	k := o.cfg.HistoryTopK
	if k > len(snapshots) {
		k = len(snapshots)
	}

	failed := 0
	if bs, ok := o.store.(history.BatchStore); ok {
		rows := make([]history.Row, 0, k)
		for _, s := range snapshots[:k] {
			rows = append(rows, history.Row{
				CoinID:     s.CoinID,
				Price:      s.CurrentPrice,
				MarketCap:  s.MarketCap,
				Volume:     s.TotalVolume,
				RecordedAt: now,
			})
		}
		if err := bs.AppendBatch(o.ctx, rows); err != nil {
			o.logger.Warn("history batch append failed", "error", err)
			failed = k
		}
	} else {
		for _, s := range snapshots[:k] {
			if err := o.store.Append(o.ctx, s.CoinID, s.CurrentPrice, s.MarketCap, s.TotalVolume, now); err != nil {
				o.logger.Warn("history append failed",
					"coin", s.CoinID,
					"error", err,
				)
				failed++
			}
		}
	}

	// A snapshot where nothing landed does not advance the gate; the next
	// cycle retries instead of waiting out another interval.
	if k > 0 && failed == k {
		o.logger.Warn("history snapshot lost, will retry next cycle", "coins", k)
		return
	}

	o.statsMu.Lock()
	o.lastHistoryAt = now
	o.statsMu.Unlock()

	o.logger.Info("history snapshot persisted",
		"coins", k-failed,
		"failed", failed,
	)
}
