package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"clapper/internal/broadcast"
	"clapper/internal/logging"
	"clapper/internal/mediastore"
	"clapper/internal/queue"
	"clapper/internal/services"
	"clapper/internal/signing"
)

// ErrNoStorageURL indicates a media record carries neither a private storage
// reference nor a public CDN URL, leaving nothing to probe.
var ErrNoStorageURL = errors.New("no storage URL available")

// JobStore is the job-lifecycle surface the worker consumes.
type JobStore interface {
	Claim(ctx context.Context, workerName, jobType string) (*queue.Job, error)
	UpdateProgress(ctx context.Context, id string, percent int) error
	MarkComplete(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, message string) error
	Heartbeat(ctx context.Context, id string) error
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// MediaStore is the media-record surface the worker consumes.
type MediaStore interface {
	GetByID(ctx context.Context, id string) (*mediastore.MediaFile, error)
	UpdateDuration(ctx context.Context, id string, seconds int64) error
}

// Prober extracts a container duration from a playable URL.
type Prober interface {
	Duration(ctx context.Context, url string) (float64, error)
}

// URLSigner converts private storage references into signed CDN URLs.
type URLSigner interface {
	Sign(ref string) (string, error)
}

// Progress checkpoints recorded while a job moves through the pipeline.
const (
	progressResolved  = 25
	progressPersisted = 75
)

// Worker drives one job at a time through the extraction pipeline:
// resolve URL, probe, persist, broadcast. It holds no per-job state and is
// safe to reuse across jobs; it is not safe for concurrent use, which is by
// construction irrelevant since each worker process runs a single pipeline.
type Worker struct {
	jobs     JobStore
	media    MediaStore
	signer   URLSigner
	prober   Prober
	notifier broadcast.Service
	logger   *slog.Logger

	broadcastWG      sync.WaitGroup
	broadcastTimeout time.Duration
}

// New constructs a Worker from its collaborators.
func New(jobs JobStore, media MediaStore, signer URLSigner, prober Prober, notifier broadcast.Service, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		jobs:             jobs,
		media:            media,
		signer:           signer,
		prober:           prober,
		notifier:         notifier,
		logger:           logging.NewComponentLogger(logger, "worker"),
		broadcastTimeout: 10 * time.Second,
	}
}

// ExecuteJob runs the full pipeline for a claimed job. Any returned error has
// already been annotated with the job and media-file identifiers; the caller
// owns persisting the terminal status.
//
// The pipeline is strictly sequential and has no partial-success state: a job
// either fully completes (duration persisted, broadcast attempted) or fails
// entirely. Broadcast failures never affect the outcome.
func (w *Worker) ExecuteJob(ctx context.Context, job *queue.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithMediaFileID(ctx, job.MediaFileID)

	url, file, err := w.resolveURL(ctx, job)
	if err != nil {
		return w.fail(job, "resolving-url", err)
	}

	seconds, err := w.probeDuration(ctx, url)
	if err != nil {
		return w.fail(job, "probing", err)
	}

	rounded, err := w.persistDuration(ctx, job, seconds)
	if err != nil {
		return w.fail(job, "persisting", err)
	}

	w.broadcastUpdate(ctx, file, rounded)
	return nil
}

func (w *Worker) resolveURL(ctx context.Context, job *queue.Job) (string, *mediastore.MediaFile, error) {
	ctx = services.WithStage(ctx, "resolving-url")
	logger := logging.WithContext(ctx, w.logger)

	file, err := w.media.GetByID(ctx, job.MediaFileID)
	if err != nil {
		return "", nil, fmt.Errorf("fetch media record: %w", err)
	}

	ref := file.StorageRef()
	if ref == "" {
		return "", nil, ErrNoStorageURL
	}

	url := ref
	if signing.NeedsSigning(ref) {
		url, err = w.signer.Sign(ref)
		if err != nil {
			return "", nil, fmt.Errorf("sign storage reference: %w", err)
		}
		logger.Debug("signed private storage reference")
	} else {
		logger.Debug("storage reference already public")
	}

	if err := w.jobs.UpdateProgress(ctx, job.ID, progressResolved); err != nil {
		return "", nil, fmt.Errorf("record resolve progress: %w", err)
	}
	return url, file, nil
}

func (w *Worker) probeDuration(ctx context.Context, url string) (float64, error) {
	ctx = services.WithStage(ctx, "probing")
	logger := logging.WithContext(ctx, w.logger)

	start := time.Now()
	seconds, err := w.prober.Duration(ctx, url)
	if err != nil {
		return 0, err
	}
	logger.Info("probe complete",
		logging.Float64("duration_seconds", seconds),
		logging.Duration("probe_time", time.Since(start)),
	)
	return seconds, nil
}

func (w *Worker) persistDuration(ctx context.Context, job *queue.Job, seconds float64) (int64, error) {
	ctx = services.WithStage(ctx, "persisting")
	logger := logging.WithContext(ctx, w.logger)

	if err := w.jobs.UpdateProgress(ctx, job.ID, progressPersisted); err != nil {
		return 0, fmt.Errorf("record persist progress: %w", err)
	}

	rounded := int64(math.Round(seconds))
	if err := w.media.UpdateDuration(ctx, job.MediaFileID, rounded); err != nil {
		return 0, fmt.Errorf("write duration: %w", err)
	}
	logger.Info("duration persisted", logging.Int64("duration_seconds", rounded))
	return rounded, nil
}

// broadcastUpdate fires the completion event in a tracked background
// goroutine. The job's context is deliberately not used: a broadcast must
// survive the caller moving on, and its failure is logged, never propagated.
func (w *Worker) broadcastUpdate(ctx context.Context, file *mediastore.MediaFile, duration int64) {
	if w.notifier == nil {
		return
	}
	event := broadcast.Event{
		UserID:      file.UploadedBy,
		MediaFileID: file.ID,
		Duration:    duration,
		RecordType:  file.FileType,
		Timestamp:   time.Now(),
	}
	logger := logging.WithContext(services.WithStage(ctx, "broadcasting"), w.logger)

	w.broadcastWG.Add(1)
	go func() {
		defer w.broadcastWG.Done()
		sendCtx, cancel := context.WithTimeout(context.Background(), w.broadcastTimeout)
		defer cancel()
		if err := w.notifier.NotifyDurationUpdated(sendCtx, event); err != nil {
			logger.Warn("broadcast failed; clients will refresh on their own",
				logging.Error(err),
				logging.String(logging.FieldEventType, "broadcast_failed"),
				logging.String(logging.FieldErrorHint, "check real-time messaging service"),
			)
			return
		}
		logger.Debug("broadcast delivered")
	}()
}

// DrainBroadcasts waits for in-flight notification goroutines, bounded by the
// provided context. Called during graceful shutdown.
func (w *Worker) DrainBroadcasts(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		w.broadcastWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// fail annotates a pipeline error with job identifiers and the stage that
// raised it, so operator logs can attribute the failure without correlation.
func (w *Worker) fail(job *queue.Job, stage string, err error) error {
	return fmt.Errorf("job %s (media file %s): %s: %w", job.ID, job.MediaFileID, stage, err)
}
