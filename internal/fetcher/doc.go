// Package fetcher implements rate-limited access to the upstream price API.
//
// The fetcher:
//   - Enforces a fixed-window call quota toward the provider
//   - Enforces a minimum spacing between any two calls
//   - Serializes concurrent callers through one lock (held only across
//     the check-and-update, never across the network call)
//   - Degrades to the last good cache on any upstream failure; it never
//     returns an error to its callers
package fetcher
