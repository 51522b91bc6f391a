package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/imagechat/internal/agentapi"
	"github.com/ent0n29/imagechat/internal/chat"
	"github.com/ent0n29/imagechat/internal/config"
	"github.com/ent0n29/imagechat/internal/httpapi"
	"github.com/ent0n29/imagechat/internal/observability"
	"github.com/ent0n29/imagechat/internal/session"
	"github.com/ent0n29/imagechat/internal/transcript"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(sorted, 50); got != 5 {
		t.Fatalf("p50 = %d, want 5", got)
	}
	if got := percentile(sorted, 95); got != 10 {
		t.Fatalf("p95 = %d, want 10", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty p50 = %d, want 0", got)
	}
}

func TestSplitPrompts(t *testing.T) {
	if got := splitPrompts(" a | |b "); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("splitPrompts = %q", got)
	}
	if got := splitPrompts(""); len(got) != len(defaultPrompts) {
		t.Fatalf("empty input should fall back to defaults, got %q", got)
	}
}

func TestSummarizeCountsFailures(t *testing.T) {
	got := summarize([]turnResult{
		{latency: 100 * time.Millisecond, status: chat.StatusIdle},
		{latency: 300 * time.Millisecond, status: chat.StatusError},
	})
	if !strings.Contains(got, "turns=2 failed=1") {
		t.Fatalf("summarize = %q", got)
	}
	if !strings.Contains(got, "max=300ms") {
		t.Fatalf("summarize = %q, want max=300ms", got)
	}
}

func TestRunAgainstMockHost(t *testing.T) {
	cfg := config.Config{
		SessionInactivityTimeout: time.Minute,
		MaxImageBytes:            1 << 20,
		AgentAPIMode:             "mock",
		AgentAppName:             "image_agent",
	}
	metrics := observability.NewMetrics(fmt.Sprintf("test_perfchat_%d", time.Now().UnixNano()))
	host := agentapi.NewMockHost()
	store := transcript.NewInMemoryStore(0)
	svc := chat.NewService(host, cfg.AgentAppName, chat.WithObserver(metrics))
	srv := httpapi.New(cfg, session.NewManager(cfg.SessionInactivityTimeout), svc, host, store, metrics)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var progress bytes.Buffer
	report, err := run(context.Background(), options{
		baseURL:     ts.URL,
		turns:       3,
		turnTimeout: 2 * time.Second,
		texts:       []string{"ping"},
		verbose:     true,
	}, &progress)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(report, "turns=3 failed=0") {
		t.Fatalf("report = %q", report)
	}
	if !strings.Contains(report, "server: ") {
		t.Fatalf("report missing server latency: %q", report)
	}
	if !strings.Contains(progress.String(), "session=session-") {
		t.Fatalf("progress = %q", progress.String())
	}
}
