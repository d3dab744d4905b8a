// Package main provides the entry point for the account monitor: the sync
// worker and the HTTP query server in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/account-monitor/internal/adapter"
	"github.com/account-monitor/internal/api"
	"github.com/account-monitor/internal/auth"
	"github.com/account-monitor/internal/config"
	"github.com/account-monitor/internal/logging"
	"github.com/account-monitor/internal/service"
	"github.com/account-monitor/internal/storage"
	"github.com/account-monitor/internal/worker"
)

func main() {
	os.Exit(run())
}

// run wires the components and blocks until shutdown, returning the exit code
func run() int {
	fmt.Println("Account Monitor")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, closeLogs, err := newLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer closeLogs()

	logger.WithFields(map[string]interface{}{
		"level":      cfg.Logging.Level,
		"format":     cfg.Logging.Format,
		"config_dir": cfg.Dir,
	}).Info("Structured logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential
	cred, err := auth.Load(cfg.Auth.FilePath, cfg.Auth.RefreshToken)
	if err != nil {
		logger.WithError(err).Fatal("No usable credential; set QT_REFRESH_TOKEN to bootstrap")
	}
	creds, err := auth.NewHolder(cred, cfg.Auth.FilePath)
	if err != nil {
		logger.WithError(err).Fatal("Saved credential is unusable")
	}

	broker, err := adapter.NewQuestradeClient(creds, adapter.QuestradeConfig{
		Practice:     cfg.Auth.Practice,
		RateLimitRPS: cfg.Broker.RateLimitRPS,
		Timeout:      cfg.Broker.Timeout,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create broker client")
	}

	// Durable store
	persister, err := newPersister(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store backend")
	}
	defer persister.Close()

	loaded, err := persister.Load(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load saved store")
	}
	store := storage.NewSharedStore(loaded)

	rules, err := config.LoadAccountRules(cfg.Sync.AccountsFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load account rules")
	}

	syncWorker, err := worker.NewSyncWorker(&worker.SyncWorkerConfig{
		Broker:      broker,
		Credentials: creds,
		Store:       store,
		Flusher:     persister,
		Rules:       rules,
		Currency:    cfg.Sync.Currency,
		Delay:       cfg.Sync.Delay,
		Logger:      logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create sync worker")
	}

	server := api.NewServer(&api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimitRPS:    cfg.Server.RateLimitRPS,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
	}, service.NewQueryService(store), syncWorker, broker, logger)

	// Start the sync worker; a fatal worker error brings the process down
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- syncWorker.Run(ctx)
	}()

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-workerDone:
		if err != nil {
			logger.WithError(err).Error("Sync worker stopped")
			exitCode = 1
		}
		workerDone <- err
	case err := <-serverErr:
		logger.WithError(err).Error("API server failed")
		exitCode = 1
	}
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Sync worker did not stop before the shutdown timeout")
	}

	logger.Info("Account monitor exited")
	return exitCode
}

// newLogger builds a stdout sink plus, when a log directory is configured, a
// rotating file sink
func newLogger(cfg *config.LoggingConfig) (*logging.Logger, func(), error) {
	level, err := logging.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	format, err := logging.ParseLogFormat(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	sinks := []logging.Sink{{Level: level, Format: format, Output: os.Stdout}}
	closeLogs := func() {}

	if cfg.FileDir != "" {
		fileLevel, err := logging.ParseLogLevel(cfg.FileLevel)
		if err != nil {
			return nil, nil, err
		}
		file := logging.RotatingFile(cfg.FileDir, "account-monitor.log", cfg.MaxSizeMB, cfg.MaxBackups)
		sinks = append(sinks, logging.Sink{Level: fileLevel, Format: logging.FormatJSON, Output: file})
		closeLogs = func() { file.Close() }
	}

	return logging.NewMultiLogger(sinks...), closeLogs, nil
}

// newPersister opens the configured blob backend behind the configured codec
func newPersister(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*storage.Persister, error) {
	codec, err := storage.NewCodec(cfg.Store.Format)
	if err != nil {
		return nil, err
	}

	var blobs storage.BlobStore
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := storage.NewRedisClient(&cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		blobs = storage.NewRedisBlobStore(client, cfg.Store.RedisKey)
	case config.BackendPostgres:
		pool, err := storage.NewPostgresPool(&cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		pg, err := storage.NewPostgresBlobStore(ctx, pool, cfg.Store.PostgresTable, cfg.Store.PostgresName)
		if err != nil {
			pool.Close()
			return nil, err
		}
		blobs = pg
	default:
		blobs = storage.NewFileBlobStore(cfg.Store.FilePath)
	}

	logger.WithFields(map[string]interface{}{
		"backend": cfg.Store.Backend,
		"format":  codec.Name(),
	}).Info("Store backend ready")

	return storage.NewPersister(codec, blobs, logger), nil
}
