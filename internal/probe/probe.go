package probe

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober invokes the external media-inspection tool against a playable URL
// and extracts the container duration.
type Prober struct {
	binary  string
	timeout time.Duration
}

// New constructs a Prober. An empty binary falls back to resolving "ffprobe"
// via PATH; a non-positive timeout disables the bound.
func New(binary string, timeout time.Duration) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, timeout: timeout}
}

// Binary returns the configured executable.
func (p *Prober) Binary() string {
	return p.binary
}

// Duration runs the probe requesting only the container duration in plain
// machine-parseable form and returns it as seconds.
//
// Exactly one short-lived child process is spawned per call; stdout and
// stderr are buffered fully before inspection since output is a single
// numeric line. No retry happens here; retry policy belongs to the queue
// layer.
func (p *Prober) Duration(ctx context.Context, url string) (float64, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, errors.New("probe: empty url")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		url,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			// A hung tool killed on deadline also lands here; timeouts
			// count as execution failures.
			return 0, &ExecutionError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		case ctx.Err() != nil:
			return 0, &ExecutionError{
				ExitCode: -1,
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      ctx.Err(),
			}
		default:
			return 0, &SpawnError{Binary: p.binary, Err: err}
		}
	}

	output := strings.TrimSpace(stdout.String())
	seconds, err := strconv.ParseFloat(output, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, &InvalidOutputError{Output: output}
	}
	return seconds, nil
}
