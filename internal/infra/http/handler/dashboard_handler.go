package handler

import (
	"net/http"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/pkg/logger"
)

// DashboardHandler serves the analytics read models.
type DashboardHandler struct {
	analytics *app.AnalyticsService
	logger    *logger.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *app.AnalyticsService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{analytics: svc, logger: log}
}

// Summary handles GET /dashboard/summary.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ComplianceStatus handles GET /dashboard/compliance/status. The body is
// the control maturity list alone.
func (h *DashboardHandler) ComplianceStatus(w http.ResponseWriter, r *http.Request) {
	controls, err := h.analytics.ComplianceStatus(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, controls)
}
