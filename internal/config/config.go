package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat web service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MaxImageBytes            int64
	MetricsNamespace         string
	LogLevel                 string

	AllowAnyOrigin bool

	AgentAPIMode    string
	AgentAPIURL     string
	AgentAppName    string
	AgentAPITimeout time.Duration
	// AgentAutoStart runs the agent in-process when AgentAPIURL points at a
	// free loopback port.
	AgentAutoStart bool
	// p95 objectives reported by /v1/perf/latency. Zero disables a target.
	CreateSessionP95Target time.Duration
	RunP95Target           time.Duration

	DatabaseURL string

	TracingEnabled  bool
	TracingEndpoint string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "imagechat"),
		LogLevel:         envOrDefault("APP_LOG_LEVEL", "info"),
		AgentAPIMode:     strings.ToLower(envOrDefault("AGENT_API_MODE", "http")),
		// `adk api_server` listens here by default.
		AgentAPIURL:              strings.TrimRight(envOrDefault("AGENT_API_URL", "http://localhost:8000"), "/"),
		AgentAppName:             envOrDefault("AGENT_APP_NAME", "image_agent"),
		DatabaseURL:              strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TracingEndpoint:          envOrDefault("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "localhost:4318"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		MaxImageBytes:            10 << 20,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	// Zero keeps the outbound client without a deadline.
	cfg.AgentAPITimeout, err = durationFromEnv("AGENT_API_TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}
	maxImage, err := intFromEnv("APP_MAX_IMAGE_BYTES", int(cfg.MaxImageBytes))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxImageBytes = int64(maxImage)
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", false)
	if err != nil {
		return Config{}, err
	}
	cfg.AgentAutoStart, err = boolFromEnv("AGENT_API_AUTOSTART", false)
	if err != nil {
		return Config{}, err
	}
	cfg.CreateSessionP95Target, err = durationFromEnv("AGENT_CREATE_SESSION_P95_TARGET", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.RunP95Target, err = durationFromEnv("AGENT_RUN_P95_TARGET", 8*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.TracingEnabled, err = boolFromEnv("OTEL_TRACES_ENABLED", false)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Load calls it; tests building a
// Config literal may call it directly.
func (c Config) Validate() error {
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("APP_MAX_IMAGE_BYTES must be positive")
	}
	if c.AgentAPITimeout < 0 {
		return fmt.Errorf("AGENT_API_TIMEOUT must be >= 0")
	}
	if c.CreateSessionP95Target < 0 || c.RunP95Target < 0 {
		return fmt.Errorf("p95 targets must be >= 0")
	}
	if strings.TrimSpace(c.AgentAppName) == "" {
		return fmt.Errorf("AGENT_APP_NAME must not be empty")
	}
	switch c.AgentAPIMode {
	case "http":
		u, err := url.Parse(c.AgentAPIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("AGENT_API_URL must be an absolute http(s) URL, got %q", c.AgentAPIURL)
		}
	case "mock":
	default:
		return fmt.Errorf("AGENT_API_MODE must be http or mock, got %q", c.AgentAPIMode)
	}
	return nil
}

// AgentHost holds settings for the agent host process.
type AgentHost struct {
	Port       int
	ConfigPath string
	APIKey     string
	WebUI      bool
	LogLevel   string
}

// LoadAgentHost reads the agent host settings.
func LoadAgentHost() (AgentHost, error) {
	cfg := AgentHost{
		ConfigPath: strings.TrimSpace(os.Getenv("AGENT_CONFIG_PATH")),
		APIKey:     strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		LogLevel:   envOrDefault("APP_LOG_LEVEL", "info"),
	}
	var err error
	cfg.Port, err = intFromEnv("AGENT_HOST_PORT", 8000)
	if err != nil {
		return AgentHost{}, err
	}
	cfg.WebUI, err = boolFromEnv("AGENT_HOST_WEBUI", false)
	if err != nil {
		return AgentHost{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return AgentHost{}, fmt.Errorf("AGENT_HOST_PORT out of range: %d", cfg.Port)
	}
	if cfg.APIKey == "" {
		return AgentHost{}, fmt.Errorf("GOOGLE_API_KEY is required")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
