// Package history persists periodic price snapshots.
//
// Rows are append-only (never update, only insert); the orchestrator
// controls cadence and the store batches each snapshot set into one
// round trip with ON CONFLICT DO NOTHING.
package history
