package handler

import (
	"context"
	"net/http"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/app/report"
	"github.com/grcmmap/api/internal/infra/http/middleware"
	"github.com/grcmmap/api/pkg/apierror"
	"github.com/grcmmap/api/pkg/domain/analytics"
	"github.com/grcmmap/api/pkg/logger"
)

// NoReportData is the 404 message when nothing has been scored yet.
const NoReportData = "No data found to generate report."

// ExecutiveRenderer renders the executive report document.
type ExecutiveRenderer interface {
	Executive(ctx context.Context, summary *analytics.Summary) ([]byte, error)
}

// ReportHandler serves generated reports.
type ReportHandler struct {
	analytics *app.AnalyticsService
	renderer  ExecutiveRenderer
	logger    *logger.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc *app.AnalyticsService, renderer ExecutiveRenderer, log *logger.Logger) *ReportHandler {
	return &ReportHandler{analytics: svc, renderer: renderer, logger: log}
}

// Executive handles GET /reports/generate/executive.
func (h *ReportHandler) Executive(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !summary.HasRisks() {
		apierror.NotFoundMessage(NoReportData).WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	page, err := h.renderer.Executive(r.Context(), summary)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("executive report failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(report.ErrorPage(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
