// Package probe wraps the external ffprobe invocation that extracts a media
// container's duration.
//
// The three error types separate "tool missing" (SpawnError, an environment
// problem), "bad input" (ExecutionError with captured stderr), and
// "unparseable output" (InvalidOutputError) so operators can tell remediation
// paths apart from logs alone.
package probe
