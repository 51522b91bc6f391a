package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/ent0n29/imagechat/internal/agentapi"
	"github.com/ent0n29/imagechat/internal/chat"
	"github.com/ent0n29/imagechat/internal/config"
	"github.com/ent0n29/imagechat/internal/log"
	"github.com/ent0n29/imagechat/internal/observability"
	"github.com/ent0n29/imagechat/internal/session"
	"github.com/ent0n29/imagechat/internal/transcript"
)

type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	chat       *chat.Service
	host       agentapi.Host
	transcript transcript.Store
	metrics    *observability.Metrics
	hub        *hub
	upgrader   websocket.Upgrader
	static     http.Handler

	// Idle websockets are kept open by server pings; a peer that stops
	// answering is dropped after wsReadTimeout.
	wsReadTimeout  time.Duration
	wsPingInterval time.Duration

	// Turns outlive the request that submitted them; they run on baseCtx.
	baseCtx  context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func New(
	cfg config.Config,
	sessions *session.Manager,
	chatService *chat.Service,
	host agentapi.Host,
	store transcript.Store,
	metrics *observability.Metrics,
) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		sessions:   sessions,
		chat:       chatService,
		host:       host,
		transcript: store,
		metrics:    metrics,
		hub:        newHub(metrics),
		static:     newStaticHandler(),
		baseCtx:    baseCtx,
		cancel:     cancel,

		wsReadTimeout:  wsReadTimeout,
		wsPingInterval: wsPingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
	sessions.SetChangeHook(s.hub.publish)
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.AllowAnyOrigin {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
		}).Handler)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/v1/chat", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Post("/session", s.handleCreateSession)
		r.Post("/turns", s.handleSubmitTurn)
		r.Get("/turns/{index}/image", s.handleTurnImage)
		r.Get("/transcript", s.handleTranscript)
		r.Get("/events", s.handleEventsWS)
	})
	r.Get("/v1/ui/settings", s.handleUISettings)
	r.Get("/v1/onboarding/status", s.handleOnboardingStatus)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

// Close cancels turns still waiting on the agent host and waits for them to
// settle or for ctx to expire.
func (s *Server) Close(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"agent_api_mode":  s.cfg.AgentAPIMode,
		"transcript_mode": s.transcriptMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.host.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unavailable",
			"agent_api": err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"agent_api_mode":  s.cfg.AgentAPIMode,
		"transcript_mode": s.transcriptMode(),
	})
}

func (s *Server) transcriptMode() string {
	if s.transcript == nil {
		return "disabled"
	}
	return s.transcript.Mode()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
