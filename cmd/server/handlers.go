package main

import (
	"fmt"

	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/internal/infra/http/handler"
	"github.com/grcmmap/api/internal/infra/http/middleware"
	"github.com/grcmmap/api/internal/infra/http/routes"
	"github.com/grcmmap/api/internal/infra/postgres"
	"github.com/grcmmap/api/internal/infra/redis"
	"github.com/grcmmap/api/pkg/logger"
)

const uploadLimiterPrefix = "ratelimit:upload"

// HandlerDeps contains dependencies needed to create handlers.
type HandlerDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	DB          *postgres.DB
	RedisClient *redis.Client // nil when Redis is disabled
	Services    *Services
}

// NewHandlers creates all HTTP handlers.
func NewHandlers(deps *HandlerDeps) routes.Handlers {
	log := deps.Log
	svc := deps.Services

	healthOpts := []handler.HealthHandlerOption{handler.WithDatabase(deps.DB)}
	if deps.RedisClient != nil {
		healthOpts = append(healthOpts, handler.WithRedis(deps.RedisClient))
	}

	return routes.Handlers{
		Health:    handler.NewHealthHandler(healthOpts...),
		Finding:   handler.NewFindingHandler(svc.Ingest, svc.FindingSummary, log),
		Dashboard: handler.NewDashboardHandler(svc.Analytics, log),
		Report:    handler.NewReportHandler(svc.Analytics, svc.Report, log),
	}
}

// uploadOptions attaches the shared upload budget when Redis is available.
func uploadOptions(cfg *config.Config, client *redis.Client, log *logger.Logger) (routes.Options, error) {
	if client == nil || !cfg.RateLimit.Enabled {
		return routes.Options{}, nil
	}
	limiter, err := redis.NewRateLimiter(client, uploadLimiterPrefix, cfg.RateLimit.UploadsPerWindow, cfg.RateLimit.UploadWindow, log)
	if err != nil {
		return routes.Options{}, fmt.Errorf("upload limiter: %w", err)
	}
	log.Info("distributed upload rate limit enabled",
		"limit", cfg.RateLimit.UploadsPerWindow,
		"window", cfg.RateLimit.UploadWindow,
	)
	return routes.Options{
		UploadMiddlewares: []routes.Middleware{middleware.DistributedRateLimit(limiter, log)},
	}, nil
}
