// Package stream implements the persistent per-client TCP transport.
//
// The stream server:
//   - Runs one handler goroutine per accepted connection
//   - Frames messages as newline-delimited JSON (split and coalesced
//     reads are reassembled by the scanner)
//   - Drives a per-session state machine: Connected → Authenticated →
//     Disconnected
//   - Emits session lifecycle events onto a channel consumed by the
//     registry, which owns the session table
//   - Fans broadcast payloads out to every session that has subscribed,
//     isolating per-session write failures
package stream
