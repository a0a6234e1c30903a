// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
)

// Configure is once-only, so all tests share a single captured writer.
var logBuf bytes.Buffer

func TestMain(m *testing.M) {
	Configure(Config{Level: "debug", Output: &logBuf, Service: "test-svc"})
	os.Exit(m.Run())
}

func lastEntry(t *testing.T) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(logBuf.Bytes()), []byte("\n"))
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	return entry
}

func TestWithComponent(t *testing.T) {
	l := WithComponent("extractor")
	l.Info().Msg("hello")

	entry := lastEntry(t)
	if entry["component"] != "extractor" {
		t.Errorf("component = %v, want extractor", entry["component"])
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
	if entry["service"] != "test-svc" {
		t.Errorf("service = %v, want test-svc", entry["service"])
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithJobID(ctx, "job-9")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id = %q, want req-1", got)
	}
	if got := JobIDFromContext(ctx); got != "job-9" {
		t.Errorf("job id = %q, want job-9", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context request id = %q, want empty", got)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := ContextWithJobID(context.Background(), "job-42")
	l := WithContext(ctx, Base())
	l.Info().Msg("run")

	entry := lastEntry(t)
	if entry["job_id"] != "job-42" {
		t.Errorf("job_id = %v, want job-42", entry["job_id"])
	}
}

func TestWithComponentFromContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-7")
	l := WithComponentFromContext(ctx, "api")
	l.Info().Msg("req")

	entry := lastEntry(t)
	if entry["component"] != "api" {
		t.Errorf("component = %v, want api", entry["component"])
	}
	if entry["request_id"] != "req-7" {
		t.Errorf("request_id = %v, want req-7", entry["request_id"])
	}
}
