package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloudscribe/config"
	"cloudscribe/fragment"
	"cloudscribe/pkg/logger"
	"cloudscribe/router"
	"cloudscribe/scheduler"
	"cloudscribe/scribedb"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file; absence is fine, the OS environment still applies.
	_ = godotenv.Load()
	logger.Init()
	defer logger.Log.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The scheduler registry and the document cache are built here and
	// passed by reference; there is no ambient global state.
	registry := scheduler.NewRegistry()
	if _, err := registry.InitDefault(); err != nil {
		logger.Sugar.Fatalf("Failed to initialise default processor: %v", err)
	}

	remote := fragment.New(cfg.FragmentAPIURL, cfg.FragmentWSURL, cfg.FragmentAPIKey)
	db := scribedb.New(remote, cfg, registry)

	// First-run provisioning can wait on remote approval for a while.
	setupCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	if err := db.Setup(setupCtx); err != nil {
		cancel()
		registry.Shutdown()
		logger.Sugar.Fatalf("SCRIBEDB SETUP FATALERROR: %v", err)
	}
	cancel()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.Setup(db, cfg.JWTSecret),
	}

	go func() {
		logger.Sugar.Infof("CloudScribe API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("HTTP shutdown: %v", err)
	}

	registry.Shutdown()
	db.Shutdown()
}
