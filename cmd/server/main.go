package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/itemxtract/internal/api"
	"github.com/dgallion1/itemxtract/internal/config"
	"github.com/dgallion1/itemxtract/internal/database"
	"github.com/dgallion1/itemxtract/internal/edgar"
	"github.com/dgallion1/itemxtract/internal/ledger"
	"github.com/dgallion1/itemxtract/internal/pathstore"
	"github.com/dgallion1/itemxtract/internal/pipeline"
	"github.com/dgallion1/itemxtract/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	sec := edgar.NewClient(edgar.Options{
		BaseURL:       cfg.SECBaseURL,
		DataURL:       cfg.SECDataURL,
		UserAgent:     cfg.SECUserAgent,
		Timeout:       cfg.SECTimeout,
		RatePerSecond: cfg.SECRateLimit,
	})

	runs, err := database.Open(cfg.RunDBPath)
	if err != nil {
		log.Error("open run database", "path", cfg.RunDBPath, "error", err)
		os.Exit(1)
	}
	defer runs.Close()

	deps := pipeline.Deps{
		Resolver: sec,
		Fetcher:  sec,
		Store:    store.NewFileStore(cfg.OutputDir),
		Markdown: cfg.WriteMarkdown,
	}
	var ps *pathstore.Client
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		deps.Mirror = ps
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Workers:      cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, pipeline.NewWorker(deps, log), []ledger.Sink{runs}, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, runs, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)

		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting itemxtract", "port", cfg.Port, "output_dir", cfg.OutputDir, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
