package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.AgentAPIURL != "http://localhost:8000" {
		t.Fatalf("AgentAPIURL = %q, want default", cfg.AgentAPIURL)
	}
	if cfg.AgentAppName != "image_agent" {
		t.Fatalf("AgentAppName = %q, want %q", cfg.AgentAppName, "image_agent")
	}
	if cfg.AgentAPIMode != "http" {
		t.Fatalf("AgentAPIMode = %q, want http", cfg.AgentAPIMode)
	}
	if cfg.AgentAPITimeout != 0 {
		t.Fatalf("AgentAPITimeout = %v, want 0", cfg.AgentAPITimeout)
	}
	if cfg.MaxImageBytes != 10<<20 {
		t.Fatalf("MaxImageBytes = %d, want %d", cfg.MaxImageBytes, 10<<20)
	}
	if cfg.AgentAutoStart {
		t.Fatalf("AgentAutoStart = true, want false by default")
	}
	if cfg.CreateSessionP95Target != 500*time.Millisecond || cfg.RunP95Target != 8*time.Second {
		t.Fatalf("p95 targets = %v/%v, want 500ms/8s", cfg.CreateSessionP95Target, cfg.RunP95Target)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
}

func TestLoadExplicitAgentURLTrimsSlash(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AGENT_API_URL", "http://127.0.0.1:9000/")
	t.Setenv("AGENT_API_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AgentAPIURL != "http://127.0.0.1:9000" {
		t.Fatalf("AgentAPIURL = %q, want trailing slash trimmed", cfg.AgentAPIURL)
	}
	if cfg.AgentAPITimeout != 90*time.Second {
		t.Fatalf("AgentAPITimeout = %v, want 90s", cfg.AgentAPITimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_SESSION_INACTIVITY_TIMEOUT": "1s",
		"APP_MAX_IMAGE_BYTES":            "0",
		"AGENT_API_MODE":                 "grpc",
		"AGENT_API_URL":                  "localhost:8000",
		"APP_ALLOW_ANY_ORIGIN":           "maybe",
		"AGENT_API_TIMEOUT":              "soon",
		"AGENT_RUN_P95_TARGET":           "-1s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q expected error", key, value)
			}
		})
	}
}

func TestLoadMockModeSkipsURLCheck(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AGENT_API_MODE", "MOCK")
	t.Setenv("AGENT_API_URL", "not a url")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AgentAPIMode != "mock" {
		t.Fatalf("AgentAPIMode = %q, want mock", cfg.AgentAPIMode)
	}
}

func TestLoadAgentHostRequiresAPIKey(t *testing.T) {
	setCoreEnvEmpty(t)
	if _, err := LoadAgentHost(); err == nil {
		t.Fatalf("LoadAgentHost() expected error without GOOGLE_API_KEY")
	}

	t.Setenv("GOOGLE_API_KEY", "k")
	t.Setenv("AGENT_HOST_PORT", "8123")
	cfg, err := LoadAgentHost()
	if err != nil {
		t.Fatalf("LoadAgentHost() error = %v", err)
	}
	if cfg.Port != 8123 || cfg.APIKey != "k" {
		t.Fatalf("unexpected agent host config: %+v", cfg)
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_MAX_IMAGE_BYTES",
		"APP_METRICS_NAMESPACE",
		"APP_LOG_LEVEL",
		"APP_ALLOW_ANY_ORIGIN",
		"AGENT_API_MODE",
		"AGENT_API_URL",
		"AGENT_APP_NAME",
		"AGENT_API_TIMEOUT",
		"AGENT_API_AUTOSTART",
		"AGENT_CREATE_SESSION_P95_TARGET",
		"AGENT_RUN_P95_TARGET",
		"DATABASE_URL",
		"OTEL_TRACES_ENABLED",
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		"AGENT_CONFIG_PATH",
		"AGENT_HOST_PORT",
		"AGENT_HOST_WEBUI",
		"GOOGLE_API_KEY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
