package coingecko

import (
	"time"

	"github.com/janm2001/cryptofeed/internal/model"
)

// toSnapshot converts a wire coin market into the internal snapshot type.
// Null numeric fields become zero values.
func toSnapshot(m apiCoinMarket) model.PriceSnapshot {
	return model.PriceSnapshot{
		CoinID:            m.ID,
		Symbol:            m.Symbol,
		Name:              m.Name,
		CurrentPrice:      deref(m.CurrentPrice),
		MarketCapRank:     derefInt(m.MarketCapRank),
		MarketCap:         deref(m.MarketCap),
		TotalVolume:       deref(m.TotalVolume),
		PriceChangePct24h: deref(m.PriceChangePct24h),
		CirculatingSupply: deref(m.CirculatingSupply),
		LastUpdated:       ParseTimestamp(m.LastUpdated),
	}
}

// ParseTimestamp parses an ISO 8601 timestamp. Returns the zero time for
// empty or invalid input.
func ParseTimestamp(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return time.Time{}
		}
	}

	return t.UTC()
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
