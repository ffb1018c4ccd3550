package api

import (
	"time"

	"clapper/internal/deps"
	"clapper/internal/queue"
	"clapper/internal/worker"
)

// JobView is the wire representation of a queue job.
type JobView struct {
	ID            string     `json:"id"`
	MediaFileID   string     `json:"mediaFileId"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	ClaimedBy     string     `json:"claimedBy,omitempty"`
	LastHeartbeat *time.Time `json:"lastHeartbeat,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// FromJob converts a queue job into its wire representation.
func FromJob(job *queue.Job) JobView {
	return JobView{
		ID:            job.ID,
		MediaFileID:   job.MediaFileID,
		Type:          job.Type,
		Status:        string(job.Status),
		Progress:      job.Progress,
		ErrorMessage:  job.ErrorMessage,
		ClaimedBy:     job.ClaimedBy,
		LastHeartbeat: job.LastHeartbeat,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
}

// HealthResponse is the payload for the health endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Queued     int    `json:"queued"`
	Processing int    `json:"processing"`
	Complete   int    `json:"complete"`
	Failed     int    `json:"failed"`
}

// StatusResponse is the payload for the daemon status endpoint.
type StatusResponse struct {
	Worker       worker.Status  `json:"worker"`
	Queue        HealthResponse `json:"queue"`
	Dependencies []deps.Status  `json:"dependencies"`
}

// JobsResponse wraps a job listing.
type JobsResponse struct {
	Jobs []JobView `json:"jobs"`
}

type errorResponse struct {
	Error string `json:"error"`
}
