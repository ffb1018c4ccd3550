package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"clapper/internal/broadcast"
	"clapper/internal/mediastore"
	"clapper/internal/probe"
	"clapper/internal/queue"
	"clapper/internal/services"
)

type fakeJobStore struct {
	mu        sync.Mutex
	pending   []*queue.Job
	status    map[string]queue.Status
	progress  map[string][]int
	failures  map[string]string
	claimErr  error
	heartbeat int
}

func newFakeJobStore(jobs ...*queue.Job) *fakeJobStore {
	store := &fakeJobStore{
		status:   make(map[string]queue.Status),
		progress: make(map[string][]int),
		failures: make(map[string]string),
	}
	for _, job := range jobs {
		store.pending = append(store.pending, job)
		store.status[job.ID] = queue.StatusQueued
	}
	return store
}

func (f *fakeJobStore) Claim(ctx context.Context, workerName, jobType string) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.pending) == 0 {
		return nil, nil
	}
	job := f.pending[0]
	f.pending = f.pending[1:]
	job.Status = queue.StatusProcessing
	job.ClaimedBy = workerName
	f.status[job.ID] = queue.StatusProcessing
	return job, nil
}

func (f *fakeJobStore) UpdateProgress(ctx context.Context, id string, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[id].IsTerminal() {
		return nil
	}
	f.progress[id] = append(f.progress[id], percent)
	return nil
}

func (f *fakeJobStore) MarkComplete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[id] == queue.StatusProcessing {
		f.status[id] = queue.StatusComplete
	}
	return nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[id] == queue.StatusProcessing {
		f.status[id] = queue.StatusFailed
		f.failures[id] = message
	}
	return nil
}

func (f *fakeJobStore) Heartbeat(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeat++
	return nil
}

func (f *fakeJobStore) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeJobStore) statusOf(id string) queue.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[id]
}

func (f *fakeJobStore) progressOf(id string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.progress[id]...)
}

type fakeMediaStore struct {
	mu          sync.Mutex
	files       map[string]*mediastore.MediaFile
	durations   map[string]int64
	updateErr   error
	updateCalls int
}

func newFakeMediaStore(files ...*mediastore.MediaFile) *fakeMediaStore {
	store := &fakeMediaStore{
		files:     make(map[string]*mediastore.MediaFile),
		durations: make(map[string]int64),
	}
	for _, file := range files {
		store.files[file.ID] = file
	}
	return store
}

func (f *fakeMediaStore) GetByID(ctx context.Context, id string) (*mediastore.MediaFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "mediastore", "get", fmt.Sprintf("media file %s", id), nil)
	}
	return file, nil
}

func (f *fakeMediaStore) UpdateDuration(ctx context.Context, id string, seconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.durations[id] = seconds
	return nil
}

type fakeProber struct {
	mu      sync.Mutex
	seconds float64
	err     error
	calls   int
	lastURL string
}

func (f *fakeProber) Duration(ctx context.Context, url string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURL = url
	if f.err != nil {
		return 0, f.err
	}
	return f.seconds, nil
}

type fakeSigner struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSigner) Sign(ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "https://cdn.example.com/signed/" + ref, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []broadcast.Event
	err    error
}

func (f *fakeNotifier) NotifyDurationUpdated(ctx context.Context, event broadcast.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) TestNotification(ctx context.Context) error { return nil }

func (f *fakeNotifier) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func testJob() *queue.Job {
	return &queue.Job{
		ID:          "job-1",
		MediaFileID: "media-1",
		Type:        "duration",
		Status:      queue.StatusProcessing,
	}
}

func TestExecuteJobPrivateReference(t *testing.T) {
	jobs := newFakeJobStore()
	media := newFakeMediaStore(&mediastore.MediaFile{
		ID:         "media-1",
		CDNURL:     "private:videos/abc.mp4",
		FileType:   "video",
		UploadedBy: "user-9",
	})
	prober := &fakeProber{seconds: 185.233}
	signer := &fakeSigner{}
	notifier := &fakeNotifier{}

	w := New(jobs, media, signer, prober, notifier, nil)
	if err := w.ExecuteJob(context.Background(), testJob()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	w.DrainBroadcasts(context.Background())

	if got := jobs.progressOf("job-1"); len(got) != 2 || got[0] != 25 || got[1] != 75 {
		t.Fatalf("progress sequence = %v, want [25 75]", got)
	}
	if signer.calls != 1 {
		t.Fatalf("signer calls = %d", signer.calls)
	}
	if prober.lastURL != "https://cdn.example.com/signed/private:videos/abc.mp4" {
		t.Fatalf("probed url = %q", prober.lastURL)
	}
	if media.durations["media-1"] != 185 {
		t.Fatalf("duration = %d, want 185", media.durations["media-1"])
	}
	if notifier.eventCount() != 1 {
		t.Fatalf("broadcasts = %d, want 1", notifier.eventCount())
	}
	event := notifier.events[0]
	if event.Duration != 185 || event.MediaFileID != "media-1" || event.UserID != "user-9" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestExecuteJobPublicURLSkipsSigner(t *testing.T) {
	jobs := newFakeJobStore()
	media := newFakeMediaStore(&mediastore.MediaFile{
		ID:     "media-1",
		CDNURL: "https://cdn.example.com/videos/abc.mp4",
	})
	prober := &fakeProber{seconds: 60}
	signer := &fakeSigner{}

	w := New(jobs, media, signer, prober, &fakeNotifier{}, nil)
	if err := w.ExecuteJob(context.Background(), testJob()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if signer.calls != 0 {
		t.Fatalf("signer must be bypassed for public URLs, called %d times", signer.calls)
	}
	if prober.lastURL != "https://cdn.example.com/videos/abc.mp4" {
		t.Fatalf("probed url = %q", prober.lastURL)
	}
}

func TestExecuteJobNoStorageURL(t *testing.T) {
	jobs := newFakeJobStore()
	media := newFakeMediaStore(&mediastore.MediaFile{ID: "media-1"})
	prober := &fakeProber{seconds: 60}

	w := New(jobs, media, &fakeSigner{}, prober, &fakeNotifier{}, nil)
	err := w.ExecuteJob(context.Background(), testJob())
	if !errors.Is(err, ErrNoStorageURL) {
		t.Fatalf("expected ErrNoStorageURL, got %v", err)
	}
	if prober.calls != 0 {
		t.Fatalf("probe must not run without a URL, ran %d times", prober.calls)
	}
}

func TestExecuteJobProbeFailureLeavesDurationUnset(t *testing.T) {
	jobs := newFakeJobStore()
	media := newFakeMediaStore(&mediastore.MediaFile{
		ID:     "media-1",
		CDNURL: "https://cdn.example.com/videos/abc.mp4",
	})
	prober := &fakeProber{err: &probe.ExecutionError{ExitCode: 1, Stderr: "Invalid data found"}}

	w := New(jobs, media, &fakeSigner{}, prober, &fakeNotifier{}, nil)
	err := w.ExecuteJob(context.Background(), testJob())

	var execErr *probe.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.Stderr != "Invalid data found" {
		t.Fatalf("stderr = %q", execErr.Stderr)
	}
	if media.updateCalls != 0 {
		t.Fatalf("duration must stay unset, %d writes", media.updateCalls)
	}
}

func TestExecuteJobRecordVanished(t *testing.T) {
	jobs := newFakeJobStore()
	media := newFakeMediaStore(&mediastore.MediaFile{
		ID:     "media-1",
		CDNURL: "https://cdn.example.com/videos/abc.mp4",
	})
	media.updateErr = fmt.Errorf("%w: media file media-1", mediastore.ErrRecordVanished)
	notifier := &fakeNotifier{}

	w := New(jobs, media, &fakeSigner{}, &fakeProber{seconds: 60}, notifier, nil)
	err := w.ExecuteJob(context.Background(), testJob())
	if !errors.Is(err, mediastore.ErrRecordVanished) {
		t.Fatalf("expected ErrRecordVanished, got %v", err)
	}

	w.DrainBroadcasts(context.Background())
	if notifier.eventCount() != 0 {
		t.Fatalf("broadcaster must not fire, got %d events", notifier.eventCount())
	}
}

func TestExecuteJobErrorsCarryIdentifiers(t *testing.T) {
	jobs := newFakeJobStore()
	media := newFakeMediaStore()

	w := New(jobs, media, &fakeSigner{}, &fakeProber{}, &fakeNotifier{}, nil)
	err := w.ExecuteJob(context.Background(), testJob())
	if err == nil {
		t.Fatal("expected error for missing record")
	}
	for _, fragment := range []string{"job-1", "media-1"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err.Error(), fragment)
		}
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestExecuteJobBroadcastFailureDoesNotFailJob(t *testing.T) {
	jobs := newFakeJobStore()
	media := newFakeMediaStore(&mediastore.MediaFile{
		ID:     "media-1",
		CDNURL: "https://cdn.example.com/videos/abc.mp4",
	})
	notifier := &fakeNotifier{err: errors.New("messaging service down")}

	w := New(jobs, media, &fakeSigner{}, &fakeProber{seconds: 60}, notifier, nil)
	if err := w.ExecuteJob(context.Background(), testJob()); err != nil {
		t.Fatalf("broadcast failure must not fail the job: %v", err)
	}
	w.DrainBroadcasts(context.Background())
}

func TestExecuteJobRoundsDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		want    int64
	}{
		{123.456, 123},
		{123.5, 124},
		{185.233, 185},
		{1.0, 1},
	}
	for _, tc := range cases {
		media := newFakeMediaStore(&mediastore.MediaFile{
			ID:     "media-1",
			CDNURL: "https://cdn.example.com/videos/abc.mp4",
		})
		w := New(newFakeJobStore(), media, &fakeSigner{}, &fakeProber{seconds: tc.seconds}, &fakeNotifier{}, nil)
		if err := w.ExecuteJob(context.Background(), testJob()); err != nil {
			t.Fatalf("execute(%v): %v", tc.seconds, err)
		}
		if got := media.durations["media-1"]; got != tc.want {
			t.Fatalf("round(%v) persisted %d, want %d", tc.seconds, got, tc.want)
		}
	}
}
