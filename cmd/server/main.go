package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aegisshield/readiness-engine/internal/activity"
	"github.com/aegisshield/readiness-engine/internal/cache"
	"github.com/aegisshield/readiness-engine/internal/config"
	"github.com/aegisshield/readiness-engine/internal/handlers"
	"github.com/aegisshield/readiness-engine/internal/loader"
	"github.com/aegisshield/readiness-engine/internal/orchestrator"
	"github.com/aegisshield/readiness-engine/internal/processor"
	"github.com/aegisshield/readiness-engine/internal/scheduler"
	"github.com/aegisshield/readiness-engine/internal/source"
)

const (
	serviceName = "readiness-engine"
	version     = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		fmt.Printf("Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting readiness engine",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Environment))

	recordSource, reportSink, cleanup, err := setupSourceAndSink(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up record source", zap.Error(err))
	}
	defer cleanup()

	whitelists := cache.NewWhitelistCache(cfg.Check.WhitelistTTL, logger)
	loader.RegisterDefaults(whitelists, recordSource, logger)

	var snapshots cache.SnapshotStore
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		snapshots = cache.NewRedisSnapshotStore(client, cfg.Redis.SnapshotKey, logger)
		restoreSnapshot(snapshots, whitelists, logger)
	}

	fieldProcessor := processor.NewFieldProcessor(whitelists, logger)
	classifier := activity.NewClassifier(recordSource, logger)
	orch := orchestrator.New(cfg.Check, recordSource, reportSink, fieldProcessor, classifier, whitelists, logger)

	runScheduler := scheduler.NewScheduler(cfg.Schedule, orch, logger)
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	if err := runScheduler.Start(schedulerCtx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := handlers.NewReadinessHandler(orch, fieldProcessor, whitelists, logger)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	cancelScheduler()
	runScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	if snapshots != nil {
		if err := snapshots.Save(shutdownCtx, whitelists.Snapshot()); err != nil {
			logger.Warn("Failed to persist whitelist snapshot", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
}

func setupLogging(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Environment == "production" && cfg.Logging.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// setupSourceAndSink wires the record source and report sink. The gateway
// is always the report sink; reads come from the replicated database when
// it is enabled, otherwise from the gateway as well.
func setupSourceAndSink(cfg *config.Config, logger *zap.Logger) (source.RecordSource, source.ReportSink, func(), error) {
	gateway, err := source.NewGatewayClient(source.GatewayOptions{
		BaseURL:   cfg.Gateway.BaseURL,
		ReportSet: cfg.Gateway.ReportSet,
		APIKey:    cfg.Gateway.APIKey,
		Timeout:   cfg.Gateway.Timeout,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	if !cfg.Database.Enabled {
		return gateway, gateway, func() {}, nil
	}

	db, err := source.NewSQLRecordSource(cfg.Database.DSN, cfg.Database.Tables, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	return db, gateway, cleanup, nil
}

func restoreSnapshot(store cache.SnapshotStore, whitelists *cache.WhitelistCache, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := store.Load(ctx)
	if err != nil {
		logger.Warn("Whitelist snapshot restore failed", zap.Error(err))
		return
	}
	if len(snap) > 0 {
		whitelists.Restore(snap)
		logger.Info("Whitelist snapshot restored", zap.Int("entries", len(snap)))
	}
}
