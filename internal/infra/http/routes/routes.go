// Package routes registers all HTTP routes for the API.
package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	infrahttp "github.com/grcmmap/api/internal/infra/http"
	"github.com/grcmmap/api/internal/infra/http/handler"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds the HTTP handlers for route registration.
type Handlers struct {
	Health    *handler.HealthHandler
	Finding   *handler.FindingHandler
	Dashboard *handler.DashboardHandler
	Report    *handler.ReportHandler
}

// Options tune route registration.
type Options struct {
	// UploadMiddlewares run only on CSV uploads, e.g. the distributed
	// upload rate limit.
	UploadMiddlewares []Middleware
}

// Register registers every route on router.
func Register(router Router, h Handlers, opts Options) {
	registerHealthRoutes(router, h.Health)
	registerFindingRoutes(router, h.Finding, opts.UploadMiddlewares)
	registerDashboardRoutes(router, h.Dashboard)
	registerReportRoutes(router, h.Report)
}

func registerHealthRoutes(router Router, h *handler.HealthHandler) {
	metrics := promhttp.Handler()

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.ServeHTTP(w, r)
	})
}

func registerFindingRoutes(router Router, h *handler.FindingHandler, uploadMiddlewares []Middleware) {
	router.Group("/findings", func(r Router) {
		r.POST("/upload_csv/{source_name}", h.UploadCSV, uploadMiddlewares...)
		r.GET("/{id}/summary", h.Summary)
	})
}

func registerDashboardRoutes(router Router, h *handler.DashboardHandler) {
	router.Group("/dashboard", func(r Router) {
		r.GET("/summary", h.Summary)
		r.GET("/compliance/status", h.ComplianceStatus)
	})
}

func registerReportRoutes(router Router, h *handler.ReportHandler) {
	router.GET("/reports/generate/executive", h.Executive)
}
