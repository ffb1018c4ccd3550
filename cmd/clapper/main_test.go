package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"clapper/internal/api"
	"clapper/internal/testsupport"
	"clapper/internal/worker"
)

func testContext(t *testing.T, opts ...testsupport.ConfigOption) *commandContext {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	ctx := newCommandContext(nil)
	ctx.configOnce.Do(func() { ctx.config = cfg })
	return ctx
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func apiTestServer(t *testing.T, handler http.Handler) (*commandContext, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	ctx := testContext(t)
	ctx.config.API.Bind = strings.TrimPrefix(server.URL, "http://")
	return ctx, server
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, newRootCommand(), "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Sample configuration written") {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# existing\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	_, err := runCommand(t, newRootCommand(), "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
}

func TestJobsListRendersTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.JobsResponse{Jobs: []api.JobView{
			{ID: "job-1", MediaFileID: "media-1", Type: "duration", Status: "processing", Progress: 25, ClaimedBy: "w1"},
		}})
	})
	ctx, _ := apiTestServer(t, mux)

	out, err := runCommand(t, newJobsListCommand(ctx))
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	for _, fragment := range []string{"job-1", "media-1", "processing", "25%"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("output %q missing %q", out, fragment)
		}
	}
}

func TestJobsShowReportsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "job not found"})
	})
	ctx, _ := apiTestServer(t, mux)

	_, err := runCommand(t, newJobsShowCommand(ctx), "missing")
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestStatusCommandReportsWorker(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.StatusResponse{
			Worker: worker.Status{WorkerName: "host-42", JobType: "duration", Running: true, Processed: 7},
		})
	})
	ctx, _ := apiTestServer(t, mux)

	out, err := runCommand(t, newStatusCommand(ctx))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "host-42") || !strings.Contains(out, "running") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "Processed: 7") {
		t.Fatalf("missing counters in output: %q", out)
	}
}

func TestHealthCommandJSONOutput(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Total: 2, Queued: 1, Complete: 1})
	})
	ctx, _ := apiTestServer(t, mux)

	out, err := runCommand(t, newHealthCommand(ctx), "--json")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var payload api.HealthResponse
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if payload.Total != 2 || payload.Queued != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAPIRequestsCarryBearerToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(api.StatusResponse{})
	})
	ctx, _ := apiTestServer(t, mux)
	ctx.config.API.Token = "sekrit"

	if _, err := runCommand(t, newStatusCommand(ctx)); err != nil {
		t.Fatalf("status: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestEnqueueRequiresArgument(t *testing.T) {
	ctx := testContext(t)
	if _, err := runCommand(t, newEnqueueCommand(ctx)); err == nil {
		t.Fatal("expected argument error")
	}
}
