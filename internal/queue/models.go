package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// ShutdownReason is the error message set when in-flight jobs are failed due
// to worker shutdown before completion.
const ShutdownReason = "Worker stopped"

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusComplete,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job represents one queued unit of deferred media work.
type Job struct {
	ID            string
	MediaFileID   string
	Type          string
	Status        Status
	Progress      int
	ErrorMessage  string
	ClaimedBy     string
	LastHeartbeat *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Complete   int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
// Terminal jobs are never resurrected; retrying means enqueueing a new job.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// IsTerminal reports whether the job has reached a terminal status.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// clampProgress bounds a progress percentage to the 0-100 range.
func clampProgress(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
