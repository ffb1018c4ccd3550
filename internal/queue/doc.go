// Package queue persists jobs in the shared Postgres store and exposes
// helpers for driving their lifecycle.
//
// The Store manages the connection pool, schema initialization, atomic job
// claims (FOR UPDATE SKIP LOCKED, so N worker processes can drain the same
// queue without double-claiming), monotonic progress checkpoints, terminal
// transitions, heartbeat tracking, and stale-job reclamation.
//
// Treat this package as the single source of truth for job semantics: a job's
// progress never decreases while processing, terminal statuses admit no
// further updates, and retrying a terminal job means enqueueing a new one.
package queue
