package probe

import "fmt"

// SpawnError indicates the probe subprocess could not be started at all:
// binary missing, not executable, or similar. This points at a worker
// environment problem likely affecting every job on the host.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("probe spawn: %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExecutionError indicates the probe subprocess ran but exited non-zero (or
// was killed on timeout). Stderr is captured verbatim for operators.
type ExecutionError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("probe execution: exit code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("probe execution: exit code %d: %v", e.ExitCode, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// InvalidOutputError indicates the subprocess succeeded but its output did
// not parse to a positive duration, usually a tool version mismatch or a
// container without duration metadata.
type InvalidOutputError struct {
	Output string
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("probe output: expected positive duration, got %q", e.Output)
}
