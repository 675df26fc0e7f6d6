package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// StatusComplete is the status reported for a processed upload.
const StatusComplete = "Ingestion complete"

// Errors returned for unusable uploads.
var (
	ErrInvalidCSV    = fmt.Errorf("invalid csv: %w", shared.ErrValidation)
	ErrMissingColumn = fmt.Errorf("missing required column: %w", shared.ErrValidation)
	ErrInvalidSource = fmt.Errorf("invalid source name: %w", shared.ErrValidation)
	ErrEmptyBody     = errors.New("upload body is required")
)

// Input is one uploaded scanner export.
type Input struct {
	// Source labels the tool that produced the file, e.g. "nessus".
	Source string
	// Filename is the client-side file name, used for archival only.
	Filename string
	Body     io.Reader
}

// Result summarizes an upload. The preview fields describe the first
// created finding only.
type Result struct {
	Status                string     `json:"status" yaml:"status"`
	Source                string     `json:"source" yaml:"source"`
	Count                 int        `json:"count" yaml:"count"`
	PreviewFindingID      *shared.ID `json:"preview_finding_id" yaml:"preview_finding_id"`
	MappedControlsPreview []string   `json:"mapped_controls_preview" yaml:"mapped_controls_preview"`
	Skipped               int        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	ArchiveKey            string     `json:"archive_key,omitempty" yaml:"archive_key,omitempty"`
}

// Archiver stores the raw bytes of an upload before it is processed.
type Archiver interface {
	Archive(ctx context.Context, source, filename string, body []byte) (key string, err error)
}
