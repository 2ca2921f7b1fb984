// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lingotag/lingotag/internal/cache"
	"github.com/lingotag/lingotag/internal/config"
	"github.com/lingotag/lingotag/internal/fetch"
	"github.com/lingotag/lingotag/internal/handler"
	"github.com/lingotag/lingotag/internal/logging"
	"github.com/lingotag/lingotag/internal/provider"
	"github.com/lingotag/lingotag/internal/reconcile"
	"github.com/lingotag/lingotag/internal/scanner"
	"github.com/lingotag/lingotag/internal/scheduler"
	"github.com/lingotag/lingotag/internal/store"
	"github.com/lingotag/lingotag/internal/translate"
	"github.com/lingotag/lingotag/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "lingotag - content tagging and translation service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LINGOTAG_DB_PATH          SQLite database path (default: ./data/lingotag.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LINGOTAG_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LINGOTAG_SOURCES          Host tables to scan: table:id:scope:content:text|html,...\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LINGOTAG_TARGET_LANGS     Fetch target languages (default: de,fr)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LINGOTAG_TAG_SCHEDULE     Tagging pass cron expression (default: */10 * * * *)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LINGOTAG_OPENAI_API_KEY   Translation provider API key (fetch disabled without it)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LINGOTAG_REDIS_URL        Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("lingotag %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env in development; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade the logger so WARN and ERROR records also reach the event log.
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	sources, err := cfg.SourceTables()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		slog.Warn("no source tables configured, tagging pass will scan nothing")
	}

	sc, err := scanner.New(db, scanner.Config{
		Sources:  sources,
		PageSize: cfg.ScanPageSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("configuring scanner: %w", err)
	}

	engine := reconcile.New(db, sc, cfg.BaseLang, logger)

	appCache := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() {
		if err := appCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	resolver := translate.NewResolver(db, appCache, cfg.BaseLang,
		time.Duration(cfg.CacheTTL)*time.Second, logger)
	tracker := fetch.NewTracker(db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan struct{})
	if cfg.ProviderEnabled() {
		p := provider.NewOpenAIProvider(provider.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		worker := fetch.NewWorker(db, p, fetch.WorkerConfig{
			BatchSize:         cfg.FetchBatchSize,
			MaxRetries:        cfg.FetchMaxRetries,
			RequestsPerMinute: cfg.ProviderRPM,
			PollInterval:      cfg.FetchPollInterval,
		}, logger)
		go func() {
			defer close(workerDone)
			worker.Run(ctx)
		}()
		slog.Info("fetch worker started", "model", cfg.OpenAIModel, "batch_size", cfg.FetchBatchSize)
	} else {
		close(workerDone)
		slog.Warn("no provider API key configured, fetch tasks will stay queued")
	}

	sched := scheduler.New(engine, cfg.TagSchedule, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Tag existing content before the first cron tick.
	go func() {
		if _, err := sched.RunNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("initial tagging pass failed", "error", err)
		}
	}()

	h := handler.NewHandler(db, tracker, resolver, logger)
	srv := &http.Server{
		Addr: cfg.ServerAddr(),
		Handler: h.Routes(handler.Options{
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			RequestTimeout: 30 * time.Second,
		}),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// The worker stops on context cancellation; wait so an in-flight batch
	// finishes its progress write.
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		slog.Warn("fetch worker did not stop in time")
	}

	slog.Info("server stopped")
	return nil
}
