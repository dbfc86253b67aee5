package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/paperchat/internal/api"
	"github.com/dgallion1/paperchat/internal/chat"
	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/config"
	"github.com/dgallion1/paperchat/internal/pipeline"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/joho/godotenv"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("open session store", "store", cfg.SessionStore, "error", err)
		os.Exit(1)
	}

	// Initialize clients.
	llm := completion.NewClient(cfg.Completion(), log)
	catalog := completion.NewCatalog(cfg.GroqModels)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(pipeline.Options{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
		Parser:       cfg.Parser(),
	}, store, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	chatSvc := chat.NewService(store, llm, catalog, log)
	srv := api.NewServer(store, orch, chatSvc, catalog, llm.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 60*time.Second,
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
		httpServer.Shutdown(shutdownCtx)

		cancel()
		llm.Close()
		store.Close()
	}()

	log.Info("starting paperchat", "port", cfg.Port, "store", cfg.SessionStore, "models", cfg.GroqModels)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore builds the configured session store. SQLite sessions idle for
// longer than SESSION_TTL are purged hourly.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (session.Store, error) {
	if cfg.SessionStore != "sqlite" {
		return session.NewMemoryStore(cfg.MaxSessions, cfg.SessionTTL), nil
	}

	store, err := session.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := store.PurgeIdle(ctx, time.Now().Add(-cfg.SessionTTL))
				if err != nil {
					log.Warn("purge idle sessions failed", "error", err)
				} else if n > 0 {
					log.Info("purged idle sessions", "count", n)
				}
			}
		}
	}()
	return store, nil
}
