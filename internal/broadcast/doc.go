// Package broadcast delivers media-duration-updated events to the real-time
// messaging layer so connected clients learn of updates without polling.
//
// Two transports are supported: an HTTP POST to the messaging service's event
// endpoint (default) and a Redis pub/sub publish for deployments that fan out
// from Redis. Both carry the same JSON envelope. When broadcasting is
// disabled the worker gets a no-op implementation.
//
// Failures here are logged and swallowed by callers; a completed job is never
// marked failed because a notification was missed.
package broadcast
