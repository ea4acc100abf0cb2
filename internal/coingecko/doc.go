// Package coingecko provides the upstream price provider REST client.
//
// Endpoints:
//   - Production: https://api.coingecko.com/api/v3
//   - Pro (keyed): https://pro-api.coingecko.com/api/v3
//
// Key endpoint: /coins/markets (paged market snapshots ordered by market cap)
package coingecko
