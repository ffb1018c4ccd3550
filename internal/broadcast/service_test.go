package broadcast

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clapper/internal/config"
)

func httpServiceFor(endpoint, token string) Service {
	cfg := config.Default()
	cfg.Broadcast.Transport = "http"
	cfg.Broadcast.Endpoint = endpoint
	cfg.Broadcast.Token = token
	return NewService(&cfg)
}

func TestNotifyDurationUpdatedPostsEnvelope(t *testing.T) {
	var (
		gotBody   []byte
		gotAuth   string
		gotHeader string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		gotHeader = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := httpServiceFor(srv.URL, "secret-token")
	event := Event{
		UserID:      "user-1",
		MediaFileID: "media-2",
		Duration:    185,
		RecordType:  "video",
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := svc.NotifyDurationUpdated(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotHeader != "application/json" {
		t.Fatalf("content type = %q", gotHeader)
	}

	var envelope struct {
		Type string `json:"type"`
		Data struct {
			UserID      string `json:"userId"`
			MediaFileID string `json:"mediaFileId"`
			Duration    int64  `json:"duration"`
			Type        string `json:"type"`
			Timestamp   string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Type != EventTypeDurationUpdated {
		t.Fatalf("event type = %q", envelope.Type)
	}
	if envelope.Data.UserID != "user-1" || envelope.Data.MediaFileID != "media-2" {
		t.Fatalf("identifiers lost: %+v", envelope.Data)
	}
	if envelope.Data.Duration != 185 || envelope.Data.Type != "video" {
		t.Fatalf("payload wrong: %+v", envelope.Data)
	}
	if envelope.Data.Timestamp != "2026-03-01T12:00:00Z" {
		t.Fatalf("timestamp = %q", envelope.Data.Timestamp)
	}
}

func TestNotifyReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel gone", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := httpServiceFor(srv.URL, "")
	err := svc.NotifyDurationUpdated(context.Background(), Event{MediaFileID: "media-2"})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestNoTokenOmitsAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	svc := httpServiceFor(srv.URL, "")
	if err := svc.NotifyDurationUpdated(context.Background(), Event{}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("authorization header should be absent, got %q", gotAuth)
	}
}

func TestOffTransportIsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Broadcast.Transport = "off"
	svc := NewService(&cfg)
	if err := svc.NotifyDurationUpdated(context.Background(), Event{}); err != nil {
		t.Fatalf("noop notify: %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop test: %v", err)
	}
}
