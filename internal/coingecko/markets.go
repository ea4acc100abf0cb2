package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/janm2001/cryptofeed/internal/model"
)

// GetMarkets fetches one page of market snapshots ordered by market cap.
func (c *Client) GetMarkets(ctx context.Context, opts GetMarketsOptions) ([]model.PriceSnapshot, error) {
	query := url.Values{}
	query.Set("vs_currency", opts.Currency)
	query.Set("order", "market_cap_desc")

	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if len(opts.IDs) > 0 {
		query.Set("ids", strings.Join(opts.IDs, ","))
	}

	var resp []apiCoinMarket
	if err := c.get(ctx, "/coins/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get coin markets: %w", err)
	}

	snapshots := make([]model.PriceSnapshot, 0, len(resp))
	for _, m := range resp {
		snapshots = append(snapshots, toSnapshot(m))
	}
	return snapshots, nil
}

// GetTopMarkets fetches the top n coins by market cap.
func (c *Client) GetTopMarkets(ctx context.Context, n int, currency string) ([]model.PriceSnapshot, error) {
	return c.GetMarkets(ctx, GetMarketsOptions{
		Currency: currency,
		PerPage:  n,
		Page:     1,
	})
}

// GetMarketsByIDs fetches snapshots for specific coin ids.
func (c *Client) GetMarketsByIDs(ctx context.Context, ids []string, currency string) ([]model.PriceSnapshot, error) {
	return c.GetMarkets(ctx, GetMarketsOptions{
		Currency: currency,
		PerPage:  len(ids),
		IDs:      ids,
	})
}
