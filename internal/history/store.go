package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store receives periodic price snapshots for persistence.
type Store interface {
	// Append records one coin's snapshot at ts.
	Append(ctx context.Context, coinID string, price, marketCap, volume float64, ts time.Time) error
}

// BatchStore is implemented by stores that can persist a whole snapshot set
// in one round trip. Callers fall back to per-row Append otherwise.
type BatchStore interface {
	AppendBatch(ctx context.Context, rows []Row) error
}

// Metrics contains store counters.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
}

// PGStore writes snapshot rows to the price_history table.
type PGStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewPGStore creates a PostgreSQL-backed history store.
func NewPGStore(db *pgxpool.Pool, logger *slog.Logger) *PGStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{db: db, logger: logger}
}

// Append implements Store with a single insert.
func (s *PGStore) Append(ctx context.Context, coinID string, price, marketCap, volume float64, ts time.Time) error {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO price_history (coin_id, price, market_cap, volume, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (coin_id, recorded_at) DO NOTHING
	`, coinID, price, marketCap, volume, ts)
	if err != nil {
		s.addErrors(1)
		return err
	}
	if ct.RowsAffected() == 0 {
		s.addConflicts(1)
	} else {
		s.addInserts(1)
	}
	return nil
}

// AppendBatch records a full snapshot set in one round trip.
func (s *PGStore) AppendBatch(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO price_history (coin_id, price, market_cap, volume, recorded_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (coin_id, recorded_at) DO NOTHING
		`, r.CoinID, r.Price, r.MarketCap, r.Volume, r.RecordedAt)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	conflicts := 0
	for range rows {
		ct, err := results.Exec()
		if err != nil {
			s.addErrors(1)
			return err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	s.addInserts(int64(len(rows) - conflicts))
	s.addConflicts(int64(conflicts))

	s.logger.Debug("flushed history snapshot",
		"count", len(rows),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return nil
}

// Stats returns current metrics.
func (s *PGStore) Stats() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

func (s *PGStore) addInserts(n int64) {
	s.mu.Lock()
	s.metrics.Inserts += n
	s.mu.Unlock()
}

func (s *PGStore) addConflicts(n int64) {
	s.mu.Lock()
	s.metrics.Conflicts += n
	s.mu.Unlock()
}

func (s *PGStore) addErrors(n int64) {
	s.mu.Lock()
	s.metrics.Errors += n
	s.mu.Unlock()
}

// Row is one history insert.
type Row struct {
	CoinID     string
	Price      float64
	MarketCap  float64
	Volume     float64
	RecordedAt time.Time
}
