package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/internal/infra/http"
	"github.com/grcmmap/api/internal/infra/http/routes"
	"github.com/grcmmap/api/internal/infra/postgres"
	"github.com/grcmmap/api/internal/infra/redis"
	"github.com/grcmmap/api/internal/infra/tracing"
	"github.com/grcmmap/api/pkg/logger"
)

// Command line flags.
var showRoutes = flag.Bool("routes", false, "Print all registered routes and exit")

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.New(logger.DefaultConfig())
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	defer closeWithLog(log, "log file", log)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env, "version", cfg.App.Version)

	// ==========================================================================
	// Tracing
	// ==========================================================================
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App.Env)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(ctx, &cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	if err := db.EnsureSchema(ctx); err != nil {
		log.Error("failed to apply schema", "error", err)
		return 1
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, &cfg.Redis, log)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			return 1
		}
		defer closeWithLog(redisClient, "redis", log)
		log.Info("redis connected")
	}

	// ==========================================================================
	// Repositories & Services
	// ==========================================================================
	repos := NewRepositories(db)

	services, err := NewServices(ctx, &ServiceDeps{
		Config: cfg,
		Log:    log,
		Repos:  repos,
	})
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		return 1
	}
	log.Info("services initialized")

	if cfg.Compliance.SeedOnStartup {
		if _, err := services.Seeder.Seed(ctx); err != nil {
			log.Error("failed to seed compliance catalog", "error", err)
			return 1
		}
	}

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	handlers := NewHandlers(&HandlerDeps{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		Services:    services,
	})

	opts, err := uploadOptions(cfg, redisClient, log)
	if err != nil {
		log.Error("failed to initialize upload rate limiter", "error", err)
		return 1
	}

	server := http.NewServer(cfg, log)
	routes.Register(server.Router(), handlers, opts)

	if *showRoutes {
		server.LogRoutes()
		return 0
	}

	// ==========================================================================
	// Start Server
	// ==========================================================================
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	lcfg := logger.DefaultConfig()
	lcfg.Level = cfg.Log.Level
	lcfg.Format = cfg.Log.Format
	lcfg.File = logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.FileMaxSizeMB,
		MaxBackups: cfg.Log.FileMaxBackups,
		MaxAgeDays: cfg.Log.FileMaxAgeDays,
		Compress:   true,
	}
	if cfg.App.Env == config.EnvProduction {
		//nolint:gosec // G115: non-negative, checked in config.Validate()
		threshold := uint64(cfg.Log.SamplingThreshold)
		lcfg.Sampling = logger.SamplingConfig{
			Enabled:   cfg.Log.SamplingEnabled,
			Tick:      time.Second,
			Threshold: threshold,
			Rate:      cfg.Log.SamplingRate,
			ErrorRate: cfg.Log.ErrorSamplingRate,
		}
	} else {
		lcfg.Format = "text"
	}

	log := logger.New(lcfg)
	logger.RegisterMetrics(nil)
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
