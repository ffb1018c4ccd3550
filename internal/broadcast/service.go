package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"clapper/internal/config"
)

const userAgent = "clapper/0.1.0"

// EventTypeDurationUpdated identifies the real-time event emitted after a
// duration write.
const EventTypeDurationUpdated = "media-duration-updated"

// Event carries the payload connected clients need to refresh a media record
// without polling.
type Event struct {
	UserID      string
	MediaFileID string
	Duration    int64
	RecordType  string
	Timestamp   time.Time
}

// Service defines the notification surface exposed to the worker.
//
// Delivery is best-effort and at-most-once: callers log failures and move
// on, and a missed notification must never change a job's outcome.
type Service interface {
	NotifyDurationUpdated(ctx context.Context, event Event) error
	TestNotification(ctx context.Context) error
}

// NewService builds a broadcaster for the configured transport. When the
// transport is "off", a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	timeout := time.Duration(cfg.Broadcast.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	switch cfg.Broadcast.Transport {
	case "http":
		return &httpService{
			endpoint: cfg.Broadcast.Endpoint,
			token:    strings.TrimSpace(cfg.Broadcast.Token),
			client:   &http.Client{Timeout: timeout},
		}
	case "redis":
		return &redisService{
			client: redis.NewClient(&redis.Options{
				Addr:     cfg.Broadcast.RedisAddr,
				Password: cfg.Broadcast.RedisPassword,
			}),
			channel: cfg.Broadcast.RedisChannel,
		}
	default:
		return noopService{}
	}
}

type envelope struct {
	Type string  `json:"type"`
	Data payload `json:"data"`
}

type payload struct {
	UserID      string `json:"userId"`
	MediaFileID string `json:"mediaFileId"`
	Duration    int64  `json:"duration"`
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
}

func encodeEvent(eventType string, event Event) ([]byte, error) {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	body, err := json.Marshal(envelope{
		Type: eventType,
		Data: payload{
			UserID:      event.UserID,
			MediaFileID: event.MediaFileID,
			Duration:    event.Duration,
			Type:        event.RecordType,
			Timestamp:   timestamp.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode broadcast event: %w", err)
	}
	return body, nil
}

type httpService struct {
	endpoint string
	token    string
	client   *http.Client
}

func (h *httpService) NotifyDurationUpdated(ctx context.Context, event Event) error {
	return h.send(ctx, EventTypeDurationUpdated, event)
}

func (h *httpService) TestNotification(ctx context.Context) error {
	return h.send(ctx, "broadcast-test", Event{Timestamp: time.Now()})
}

func (h *httpService) send(ctx context.Context, eventType string, event Event) error {
	body, err := encodeEvent(eventType, event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build broadcast request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("broadcast endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type redisService struct {
	client  *redis.Client
	channel string
}

func (r *redisService) NotifyDurationUpdated(ctx context.Context, event Event) error {
	return r.publish(ctx, EventTypeDurationUpdated, event)
}

func (r *redisService) TestNotification(ctx context.Context) error {
	return r.publish(ctx, "broadcast-test", Event{Timestamp: time.Now()})
}

func (r *redisService) publish(ctx context.Context, eventType string, event Event) error {
	body, err := encodeEvent(eventType, event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyDurationUpdated(context.Context, Event) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
