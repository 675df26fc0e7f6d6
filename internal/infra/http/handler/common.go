package handler

import (
	"encoding/json"
	"net/http"

	"github.com/grcmmap/api/internal/infra/http/middleware"
	"github.com/grcmmap/api/pkg/apierror"
	"github.com/grcmmap/api/pkg/logger"
)

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to the API error envelope. Server-side failures
// are logged with their cause; client errors are not.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	apiErr := apierror.FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		log.WithContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	apiErr.WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
}
