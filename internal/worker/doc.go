// Package worker implements the duration-extraction pipeline and the claim
// loop that feeds it.
//
// The Worker drives a single claimed job through four sequential stages:
// resolve the playable URL (signing private references), probe the container
// duration, persist it atomically, and broadcast a best-effort completion
// event. Failures from the first three stages are annotated with job and
// media-file identifiers and propagate to the Daemon, which records the
// terminal status; broadcast failures are logged and swallowed.
//
// The Daemon is one member of a horizontally-scaled pool: every instance
// polls the same Postgres-backed queue, relying on atomic claims to avoid
// duplicate processing and on heartbeats to let peers reclaim jobs from
// crashed workers. Shutdown drains the in-flight job rather than aborting it.
package worker
