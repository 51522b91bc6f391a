package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "github.com/ent0n29/imagechat/internal/agentapi"
	maxErrorBody = 4 << 10
)

// HTTPClient calls an agent host such as `adk api_server`.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	tracer  trace.Tracer
	prop    propagation.TextMapPropagator
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTracerProvider records spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *HTTPClient) {
		if tp != nil {
			h.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewHTTPClient returns a client for baseURL. A zero timeout means none.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
		tracer:  otel.GetTracerProvider().Tracer(tracerName),
		prop:    otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPClient) CreateSession(ctx context.Context, appName, userID, sessionID string) error {
	ctx, span := h.tracer.Start(ctx, "agentapi.CreateSession", trace.WithAttributes(
		attribute.String("agent.app_name", appName),
		attribute.String("agent.user_id", userID),
		attribute.String("agent.session_id", sessionID),
	))
	defer span.End()

	path := fmt.Sprintf("/apps/%s/users/%s/sessions/%s",
		url.PathEscape(appName), url.PathEscape(userID), url.PathEscape(sessionID))
	res, err := h.post(ctx, path, struct{}{})
	if err != nil {
		endSpan(span, 0, err)
		return fmt.Errorf("create session: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err := statusError("create session", res)
		endSpan(span, res.StatusCode, err)
		return err
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, res.Body)
	endSpan(span, res.StatusCode, nil)
	return nil
}

func (h *HTTPClient) Run(ctx context.Context, req RunRequest) ([]Event, error) {
	ctx, span := h.tracer.Start(ctx, "agentapi.Run", trace.WithAttributes(
		attribute.String("agent.app_name", req.AppName),
		attribute.String("agent.user_id", req.UserID),
		attribute.String("agent.session_id", req.SessionID),
		attribute.Int("agent.parts", len(req.NewMessage.Parts)),
	))
	defer span.End()

	res, err := h.post(ctx, "/run", req)
	if err != nil {
		endSpan(span, 0, err)
		return nil, fmt.Errorf("run: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err := statusError("run", res)
		endSpan(span, res.StatusCode, err)
		return nil, err
	}

	var events []Event
	if err := json.NewDecoder(res.Body).Decode(&events); err != nil {
		err = fmt.Errorf("run: decode events: %w", err)
		endSpan(span, res.StatusCode, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("agent.events", len(events)))
	endSpan(span, res.StatusCode, nil)
	return events, nil
}

// Ping lists the host's apps, which every ADK api server exposes.
func (h *HTTPClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/list-apps", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	res, err := h.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return statusError("ping", res)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

func (h *HTTPClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	h.prop.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	res, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return res, nil
}

func statusError(op string, res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return &StatusError{Op: op, StatusCode: res.StatusCode, Body: string(body)}
}

func endSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err))
		return
	}
	span.SetStatus(codes.Ok, "")
}
