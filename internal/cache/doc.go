// Package cache holds the orchestrator's local observers: an in-process
// latest-snapshot cache and an optional Redis mirror of per-coin latest
// prices for other services to read.
package cache
