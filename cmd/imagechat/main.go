package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ent0n29/imagechat/internal/app"
	"github.com/ent0n29/imagechat/internal/config"
	"github.com/ent0n29/imagechat/internal/log"
	"github.com/ent0n29/imagechat/internal/observability"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	ctx := context.Background()
	shutdownTracing, err := observability.StartTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		ServiceName: "imagechat",
	})
	if err != nil {
		log.Fatalf("tracing init failed: %v", err)
	}

	built, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if built.Cleanup != nil {
			_ = built.Cleanup()
		}
	}()
	log.Infow("agent api configured",
		"mode", built.Agent.Mode,
		"app_name", built.Agent.AppName,
		"detail", built.Agent.Detail,
		"transcript", built.Transcript.Mode(),
	)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	built.Sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Infof("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Infof("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}
	if err := built.API.Close(shutdownCtx); err != nil {
		log.Warnf("pending turns not settled: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnf("tracing shutdown failed: %v", err)
	}

	log.Infof("shutdown complete")
}
