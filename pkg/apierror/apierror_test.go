package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcmmap/api/pkg/domain/shared"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   Code
	}{
		{"not found", fmt.Errorf("finding %w", shared.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"validation", fmt.Errorf("%w: bad", shared.ErrValidation), http.StatusBadRequest, CodeBadRequest},
		{"exists", fmt.Errorf("asset %w", shared.ErrAlreadyExists), http.StatusConflict, CodeConflict},
		{"api error passthrough", TooManyRequests(""), http.StatusTooManyRequests, CodeRateLimitExceeded},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
		})
	}

	assert.Nil(t, FromError(nil))
}

func TestWriteJSON_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(errors.New("pq: password authentication failed")).WriteJSONWithRequestID(rec, "req-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	assert.NotContains(t, rec.Body.String(), "password")

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternalError, body.Code)
	assert.Equal(t, "req-1", body.RequestID)
}
