package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrTransient, "queue", "claim", "fetch next job", cause)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	for _, fragment := range []string{"queue", "claim", "fetch next job", "connection refused"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "probe", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected default transient marker, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(Wrap(ErrConfiguration, "config", "load", "signing secret missing", nil)) {
		t.Fatal("configuration errors should be fatal")
	}
	if IsFatal(Wrap(ErrNotFound, "mediastore", "get", "record missing", nil)) {
		t.Fatal("not-found errors should not be fatal")
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithJobID(ctx, "job-1")
	ctx = WithMediaFileID(ctx, "media-9")
	ctx = WithStage(ctx, "probing")
	ctx = WithRequestID(ctx, "req-42")

	if id, ok := JobIDFromContext(ctx); !ok || id != "job-1" {
		t.Fatalf("job id = %q, %v", id, ok)
	}
	if id, ok := MediaFileIDFromContext(ctx); !ok || id != "media-9" {
		t.Fatalf("media file id = %q, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "probing" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-42" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := WithStage(context.Background(), "")
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
}
