// Package model defines shared data types used across the feed daemon.
//
// Conventions:
//   - Prices and volumes: float64 in the configured quote currency
//   - Timestamps: time.Time in UTC
//   - IDs: provider coin ids (e.g., "bitcoin"), uuid.UUID for sessions
package model

import "time"

// PriceSnapshot is an immutable point-in-time price record for one coin.
// A fetch produces a whole new ordered slice; snapshots are never mutated
// after construction.
type PriceSnapshot struct {
	CoinID            string    // Provider id (e.g., "bitcoin")
	Symbol            string    // Ticker symbol (e.g., "btc")
	Name              string    // Display name
	CurrentPrice      float64   // Latest price in quote currency
	MarketCapRank     int       // Rank by market cap (1 = largest)
	MarketCap         float64   // Market capitalization
	TotalVolume       float64   // 24h traded volume
	PriceChangePct24h float64   // 24h price change, percent
	CirculatingSupply float64   // Circulating supply
	LastUpdated       time.Time // Provider-reported update time
}

// FilterByIDs returns the snapshots whose CoinID is in ids, preserving the
// order of the input slice. Unknown ids are skipped.
func FilterByIDs(snapshots []PriceSnapshot, ids []string) []PriceSnapshot {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]PriceSnapshot, 0, len(ids))
	for _, s := range snapshots {
		if _, ok := want[s.CoinID]; ok {
			out = append(out, s)
		}
	}
	return out
}
