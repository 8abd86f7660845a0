package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/narrative-engine/internal/calendar"
	"github.com/jwebster45206/narrative-engine/internal/config"
	"github.com/jwebster45206/narrative-engine/internal/content"
	"github.com/jwebster45206/narrative-engine/internal/events"
	"github.com/jwebster45206/narrative-engine/internal/handlers"
	"github.com/jwebster45206/narrative-engine/internal/lock"
	"github.com/jwebster45206/narrative-engine/internal/logger"
	"github.com/jwebster45206/narrative-engine/internal/middleware"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/engine"
	"github.com/jwebster45206/narrative-engine/pkg/event"
	pkgstorage "github.com/jwebster45206/narrative-engine/pkg/storage"
)

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Narrative Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"content_dir", cfg.ContentDir,
		"lock_backend", cfg.LockBackend)

	health := map[string]handlers.Pinger{}
	var closers []func() error

	var (
		store       pkgstorage.Storage
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error("Invalid Redis URL", "error", err)
			os.Exit(1)
		}
		rs := storage.NewRedisStorage(redisClient, cfg.ProgressTTL, log)

		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := rs.WaitForConnection(storageCtx)
		storageCancel()
		if err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		log.Info("Storage connection established successfully")
		store = rs
		closers = append(closers, rs.Close)
	} else {
		log.Warn("REDIS_URL not set, progress is kept in memory")
		store = pkgstorage.NewMockStorage()
	}
	health["storage"] = store

	var ledger consequence.Ledger
	if cfg.SQLitePath != "" {
		sl, err := storage.OpenSQLiteLedger(cfg.SQLitePath)
		if err != nil {
			log.Error("Failed to open consequence ledger", "error", err, "path", cfg.SQLitePath)
			os.Exit(1)
		}
		ledger = sl
		health["ledger"] = sl
		closers = append(closers, sl.Close)
	} else if mem, ok := store.(*pkgstorage.MockStorage); ok {
		ledger = mem
	} else {
		ledger = pkgstorage.NewMockStorage()
	}

	var locker engine.Locker = lock.NewKeyedMutex()
	if cfg.LockBackend == "redis" {
		locker = lock.NewRedisLocker(redisClient, cfg.LockTTL, log)
	}

	var (
		notifier    engine.Notifier
		broadcaster *events.Broadcaster
	)
	if redisClient != nil {
		broadcaster = events.NewBroadcaster(redisClient, log)
		notifier = broadcaster
	}

	var rnd event.Random
	if cfg.RandomSeed != 0 {
		rnd = event.NewLockedRand(cfg.RandomSeed)
	}

	romance, err := event.LoadRomanceConfig(cfg.RomanceConfig, log)
	if err != nil {
		log.Error("Failed to load romance config", "error", err, "path", cfg.RomanceConfig)
		os.Exit(1)
	}

	validator, err := chapter.NewValidator(cfg.EntryPoints...)
	if err != nil {
		log.Error("Invalid entry point pattern", "error", err)
		os.Exit(1)
	}

	registry := chapter.NewRegistry(nil)
	eng := engine.New(engine.Config{
		Registry:  registry,
		Storage:   store,
		Tracker:   consequence.NewTracker(ledger, log),
		Evaluator: event.NewEvaluator(calendar.NewSystem(time.UTC), rnd, romance, store, log),
		Locker:    locker,
		Notifier:  notifier,
		Logger:    log,
	})

	manager := content.NewManager(os.DirFS(cfg.ContentDir), registry, eng, romance, validator, log)
	report := manager.Reload()
	for _, f := range report.Findings {
		log.Warn("Content validation finding", "finding", f)
	}

	mux := handlers.NewRouter(handlers.Deps{
		Engine:      eng,
		Registry:    registry,
		Content:     manager,
		Broadcaster: broadcaster,
		Health:      health,
		Logger:      log,
	})

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream holds connections open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	closeAll(log, closers)

	log.Info("Server exited")
}

func closeAll(log *slog.Logger, closers []func() error) {
	for _, c := range closers {
		if err := c(); err != nil {
			log.Error("Error closing connection", "error", err)
		}
	}
}
