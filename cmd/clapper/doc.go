// Package main hosts the clapper CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the local daemon API, direct queue operations for commands
// that must work without a running worker, and configuration scaffolding.
// It centralizes configuration resolution so subcommands can focus on user
// experience instead of wiring.
package main
