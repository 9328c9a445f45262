// Package store persists commit traces to SQLite.
//
// Each recorded engine lifetime is a session; every committed render pass
// appends one row carrying the pass's host mutation stream as canonical
// JSON. Rows are append-only and idempotent on (session, seq), and reads
// are ordered deterministically so a stored trace replays the same way
// every time. RecordingHook adapts the store to the devtools hook surface;
// Replay rebuilds a host tree from a stored trace alone.
package store
