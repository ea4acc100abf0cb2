// Package broadcast implements the periodic fetch-and-distribute driver.
//
// Each cycle the orchestrator:
//   - Fetches the top-N snapshot set (never an error; cache fallback)
//   - Replaces the in-memory last-known set
//   - Persists a history snapshot when the configured interval elapsed
//   - Fans out to the stream and datagram registries
//   - Notifies local observers
//
// No failure inside a cycle stops the loop; the next cycle always runs.
package broadcast
