package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/app/ingest"
	"github.com/grcmmap/api/internal/infra/http/middleware"
	"github.com/grcmmap/api/pkg/apierror"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/logger"
)

// UploadField is the multipart field carrying the CSV file.
const UploadField = "file"

// multipartMemory is how much of an upload is held in memory before
// spilling to a temporary file.
const multipartMemory = 4 << 20

// FindingHandler serves CSV ingestion and per-finding summaries.
type FindingHandler struct {
	ingest  *ingest.Service
	summary *app.FindingSummaryService
	logger  *logger.Logger
}

// NewFindingHandler creates a new FindingHandler.
func NewFindingHandler(ingestSvc *ingest.Service, summarySvc *app.FindingSummaryService, log *logger.Logger) *FindingHandler {
	return &FindingHandler{
		ingest:  ingestSvc,
		summary: summarySvc,
		logger:  log,
	}
}

// UploadCSV handles POST /findings/upload_csv/{source_name}.
func (h *FindingHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	source := chi.URLParam(r, "source_name")

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if limit, ok := middleware.IsBodyTooLarge(err); ok {
			apierror.PayloadTooLarge(limit).WriteJSONWithRequestID(w, requestID)
			return
		}
		apierror.BadRequest("Expected a multipart/form-data body").WithError(err).WriteJSONWithRequestID(w, requestID)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		apierror.BadRequest(`Missing upload field "file"`).WithError(err).WriteJSONWithRequestID(w, requestID)
		return
	}
	defer file.Close()

	result, err := h.ingest.Ingest(r.Context(), ingest.Input{
		Source:   source,
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Summary handles GET /findings/{id}/summary.
func (h *FindingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDFromString(chi.URLParam(r, "id"))
	if err != nil {
		apierror.BadRequest("Invalid finding ID format").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}

	summary, err := h.summary.Summarize(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
