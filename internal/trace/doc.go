// Package trace provides SQLite-backed durable storage for call records.
//
// Every invocation routed through a Recorder is appended to the log with its
// arguments, outcome, and position in the session:
//   - ok: the call passed the gate and the target returned normally
//   - rejected: the gate refused the call (positional-count violation)
//   - error: the gate passed the call through and the target failed
//
// All ordering uses seq INTEGER (logical clock), never timestamps, so a
// session reads back in the same order it was recorded regardless of wall
// time. Reads include: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Record IDs are content-addressed via internal/sig using RFC 8785 canonical
// JSON and SHA-256 with domain separation, which makes writes idempotent:
// re-recording an identical call is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package trace
