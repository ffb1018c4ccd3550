package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clapper/internal/config"
	"clapper/internal/logging"
	"clapper/internal/queue"
	"clapper/internal/services"
)

// Daemon owns the claim loop for one pool member: it polls the shared queue,
// feeds claimed jobs to the Worker one at a time, keeps heartbeats fresh
// while a job runs, and reclaims jobs abandoned by crashed workers.
//
// Horizontal scale-out is achieved by running more daemon processes; there is
// no job parallelism inside a single process.
type Daemon struct {
	cfg    *config.Config
	jobs   JobStore
	worker *Worker
	logger *slog.Logger
	lock   *flock.Flock

	mu         sync.Mutex
	running    bool
	startedAt  time.Time
	currentJob *queue.Job
	lastErr    error
	processed  int
	failed     int
}

// Status is a point-in-time snapshot of daemon state for the API and CLI.
type Status struct {
	WorkerName   string     `json:"workerName"`
	JobType      string     `json:"jobType"`
	Running      bool       `json:"running"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CurrentJobID string     `json:"currentJobId,omitempty"`
	Processed    int        `json:"processed"`
	Failed       int        `json:"failed"`
	LastError    string     `json:"lastError,omitempty"`
}

// NewDaemon constructs the claim loop around a Worker.
func NewDaemon(cfg *config.Config, jobs JobStore, worker *Worker, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Daemon{
		cfg:    cfg,
		jobs:   jobs,
		worker: worker,
		logger: logging.NewComponentLogger(logger, "daemon"),
	}
}

// Run claims and processes jobs until ctx is canceled. The in-flight job is
// drained before returning: shutdown stops claiming, never interrupts work
// already claimed.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.acquireLock(); err != nil {
		return err
	}
	defer d.releaseLock()

	d.mu.Lock()
	d.running = true
	d.startedAt = time.Now().UTC()
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Info("worker started",
		logging.String(logging.FieldWorker, d.cfg.Worker.Name),
		logging.String("job_type", d.cfg.Worker.JobType),
	)

	pollInterval := time.Duration(d.cfg.Worker.PollInterval) * time.Second
	retryInterval := time.Duration(d.cfg.Worker.ErrorRetryInterval) * time.Second

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		default:
		}

		d.reclaimStale(ctx)

		job, err := d.jobs.Claim(ctx, d.cfg.Worker.Name, d.cfg.Worker.JobType)
		if err != nil {
			d.setLastError(err)
			d.logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_failed"),
				logging.String(logging.FieldErrorHint, "check store connectivity"),
			)
			if !sleepOrDone(ctx, retryInterval) {
				d.drain()
				return nil
			}
			continue
		}
		if job == nil {
			if !sleepOrDone(ctx, pollInterval) {
				d.drain()
				return nil
			}
			continue
		}

		d.processJob(ctx, job)
	}
}

// processJob runs one claimed job to its terminal state. The pipeline uses a
// context detached from shutdown cancellation so a termination signal drains
// the current job instead of abandoning it mid-write.
func (d *Daemon) processJob(ctx context.Context, job *queue.Job) {
	jobCtx := context.WithoutCancel(ctx)
	jobCtx = services.WithJobID(jobCtx, job.ID)
	jobCtx = services.WithMediaFileID(jobCtx, job.MediaFileID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, d.logger)

	d.setCurrentJob(job)
	defer d.setCurrentJob(nil)

	logger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("job_type", job.Type),
	)
	start := time.Now()

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go d.heartbeatLoop(hbCtx, &hbWG, job.ID)

	execErr := d.worker.ExecuteJob(jobCtx, job)
	hbCancel()
	hbWG.Wait()

	if execErr != nil {
		d.setLastError(execErr)
		d.incrementFailed()
		logger.Error("job failed",
			logging.Error(execErr),
			logging.String(logging.FieldEventType, "job_failed"),
			logging.Duration("job_duration", time.Since(start)),
		)
		if err := d.jobs.MarkFailed(jobCtx, job.ID, execErr.Error()); err != nil {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
		return
	}

	if err := d.jobs.MarkComplete(jobCtx, job.ID); err != nil {
		d.setLastError(err)
		logger.Error("failed to persist job completion", logging.Error(err))
		return
	}
	d.incrementProcessed()
	logger.Info("job complete",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Duration("job_duration", time.Since(start)),
	)
}

func (d *Daemon) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, jobID string) {
	defer wg.Done()
	interval := time.Duration(d.cfg.Worker.HeartbeatInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.jobs.Heartbeat(ctx, jobID); err != nil {
				d.logger.Warn("heartbeat update failed",
					logging.Error(err),
					logging.String(logging.FieldJobID, jobID),
					logging.String(logging.FieldEventType, "heartbeat_failed"),
					logging.String(logging.FieldErrorHint, "job may be reclaimed by another worker"),
				)
			}
		}
	}
}

// reclaimStale returns abandoned processing jobs to the queue so any pool
// member can pick them up after a worker crash.
func (d *Daemon) reclaimStale(ctx context.Context) {
	cutoff := time.Now().Add(-time.Duration(d.cfg.Worker.HeartbeatTimeout) * time.Second)
	reclaimed, err := d.jobs.ReclaimStale(ctx, cutoff)
	if err != nil {
		d.logger.Warn("stale job reclaim failed; abandoned jobs may linger",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check store connectivity"),
		)
		return
	}
	if reclaimed > 0 {
		d.logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
}

func (d *Daemon) drain() {
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.worker.DrainBroadcasts(drainCtx)
	d.logger.Info("worker stopped", logging.String(logging.FieldWorker, d.cfg.Worker.Name))
}

// Status returns a snapshot of daemon state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := Status{
		WorkerName: d.cfg.Worker.Name,
		JobType:    d.cfg.Worker.JobType,
		Running:    d.running,
		Processed:  d.processed,
		Failed:     d.failed,
	}
	if d.running {
		started := d.startedAt
		status.StartedAt = &started
	}
	if d.currentJob != nil {
		status.CurrentJobID = d.currentJob.ID
	}
	if d.lastErr != nil {
		status.LastError = d.lastErr.Error()
	}
	return status
}

func (d *Daemon) setCurrentJob(job *queue.Job) {
	d.mu.Lock()
	d.currentJob = job
	d.mu.Unlock()
}

func (d *Daemon) setLastError(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

func (d *Daemon) incrementProcessed() {
	d.mu.Lock()
	d.processed++
	d.mu.Unlock()
}

func (d *Daemon) incrementFailed() {
	d.mu.Lock()
	d.failed++
	d.mu.Unlock()
}

// acquireLock guards the worker identity with a file lock: two processes
// claiming under the same name would defeat heartbeat attribution.
func (d *Daemon) acquireLock() error {
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	lock := flock.New(d.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire worker lock: %w", err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, "daemon", "lock",
			fmt.Sprintf("worker %q is already running (lock %s held)", d.cfg.Worker.Name, d.cfg.LockPath()), nil)
	}
	d.lock = lock
	return nil
}

func (d *Daemon) releaseLock() {
	if d.lock == nil {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release worker lock failed", logging.Error(err))
	}
	d.lock = nil
}

func sleepOrDone(ctx context.Context, duration time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(duration):
		return true
	}
}
