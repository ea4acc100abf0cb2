// Package datagram implements the best-effort UDP broadcast transport.
//
// The datagram server:
//   - Runs a single receive loop decoding one JSON object per packet
//   - Tracks subscribers by typed endpoint (netip.AddrPort)
//   - Refreshes liveness on Heartbeat only for endpoints already
//     subscribed; heartbeats never create subscriptions
//   - Sends broadcasts fire-and-forget, skipping (not evicting) endpoints
//     whose send fails
//   - Evicts subscribers whose last heartbeat is older than the configured
//     TTL (TTL 0 keeps subscriptions until explicit unsubscribe)
package datagram
