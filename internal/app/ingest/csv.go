package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/pkg/domain/finding"
)

const utf8BOM = "\ufeff"

// rowReader yields CSV records keyed by header name.
type rowReader struct {
	r      *csv.Reader
	header []string
}

// newRowReader reads the header line. It returns io.EOF for an empty
// input.
func newRowReader(body io.Reader) (*rowReader, error) {
	r := csv.NewReader(body)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidCSV, err)
	}

	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.TrimSpace(h)
	}

	hasAddress := false
	for _, h := range header {
		if h == app.ColumnIPAddress {
			hasAddress = true
			break
		}
	}
	if !hasAddress {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, app.ColumnIPAddress)
	}

	return &rowReader{r: r, header: header}, nil
}

// next returns the next record and its line number. Short records leave
// the trailing columns nil; cells beyond the header are dropped.
func (rr *rowReader) next() (finding.RawEvidence, int, error) {
	rec, err := rr.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	line, _ := rr.r.FieldPos(0)

	ev := make(finding.RawEvidence, len(rr.header))
	for i, h := range rr.header {
		if h == "" {
			continue
		}
		if i < len(rec) {
			ev[h] = rec[i]
		} else {
			ev[h] = nil
		}
	}
	return ev, line, nil
}
