// Package api serves the local status endpoint: health of the shared store,
// a snapshot of the claim loop, and read-only queue visibility. It is meant
// for operators and the clapper CLI, not for public exposure.
package api
