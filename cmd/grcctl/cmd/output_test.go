package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/app/ingest"
	"github.com/grcmmap/api/pkg/domain/analytics"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/shared"
)

func withOutput(t *testing.T, format string) {
	t.Helper()
	prev := flagOutput
	flagOutput = format
	t.Cleanup(func() { flagOutput = prev })
}

func TestPrintStructured(t *testing.T) {
	v := map[string]int{"count": 2}

	tests := []struct {
		name     string
		format   string
		wantDone bool
		wantErr  bool
		want     string
	}{
		{name: "json", format: outputJSON, wantDone: true, want: "{\n  \"count\": 2\n}\n"},
		{name: "yaml", format: outputYAML, wantDone: true, want: "count: 2\n"},
		{name: "table", format: outputTable},
		{name: "empty means table", format: ""},
		{name: "unknown", format: "xml", wantDone: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			done, err := printStructured(&buf, tt.format, v)
			assert.Equal(t, tt.wantDone, done)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrintIngestResult(t *testing.T) {
	id := shared.MustIDFromString("7d0c6a53-7f54-4c43-9b54-0c3f1f8f8b11")
	res := &ingest.Result{
		Status:                ingest.StatusComplete,
		Source:                "nessus",
		Count:                 3,
		Skipped:               1,
		PreviewFindingID:      &id,
		MappedControlsPreview: []string{"Patch Management & Configuration Hardening"},
	}

	t.Run("table", func(t *testing.T) {
		withOutput(t, outputTable)
		var buf bytes.Buffer
		require.NoError(t, printIngestResult(&buf, res))
		out := buf.String()
		assert.Contains(t, out, "PREVIEW FINDING")
		assert.Contains(t, out, id.String())
		assert.Contains(t, out, "Patch Management & Configuration Hardening")
		assert.Contains(t, out, "Ingestion complete.")
	})

	t.Run("json", func(t *testing.T) {
		withOutput(t, outputJSON)
		var buf bytes.Buffer
		require.NoError(t, printIngestResult(&buf, res))
		var got ingest.Result
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, *res, got)
	})
}

func TestPrintDashboardSummary(t *testing.T) {
	withOutput(t, outputTable)

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printDashboardSummary(&buf, &analytics.Summary{}))
		assert.Equal(t, "No risks recorded.\n", buf.String())
	})

	t.Run("populated", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printDashboardSummary(&buf, &analytics.Summary{
			RisksByRating:   []analytics.RatingCount{{Rating: "Critical", Count: 2}},
			ControlMaturity: []analytics.ControlCount{{ControlName: "Access Control", FindingCount: 2}},
			FindingTrend:    []analytics.TrendPoint{{Date: "2024-05-01", Count: 2}},
		}))
		out := buf.String()
		assert.Contains(t, out, "Critical")
		assert.Contains(t, out, "Access Control")
		assert.Contains(t, out, "2024-05-01")
	})
}

func TestPrintSeedResult_YAML(t *testing.T) {
	withOutput(t, outputYAML)
	var buf bytes.Buffer
	require.NoError(t, printSeedResult(&buf, &app.SeedResult{Frameworks: 2, Controls: 3, Citations: 4}))

	var got app.SeedResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, app.SeedResult{Frameworks: 2, Controls: 3, Citations: 4}, got)
}

func TestPrintCatalog(t *testing.T) {
	catalog := compliance.DefaultCatalog()

	t.Run("table lists every citation", func(t *testing.T) {
		withOutput(t, outputTable)
		var buf bytes.Buffer
		require.NoError(t, printCatalog(&buf, catalog))
		for _, ctl := range catalog.Controls() {
			assert.Contains(t, buf.String(), ctl.Name)
			for _, cit := range ctl.Citations {
				assert.Contains(t, buf.String(), cit.Reference)
			}
		}
	})

	t.Run("yaml round trips", func(t *testing.T) {
		withOutput(t, outputYAML)
		var buf bytes.Buffer
		require.NoError(t, printCatalog(&buf, catalog))

		var got catalogView
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, catalog.Frameworks(), got.Frameworks)
		assert.Equal(t, catalog.Rules(), got.Rules)
	})
}

func TestCatalogCommand_BadPath(t *testing.T) {
	prev := flagCatalog
	flagCatalog = "/nonexistent/catalog.yaml"
	t.Cleanup(func() { flagCatalog = prev })

	_, err := loadCatalog(nil)
	assert.ErrorContains(t, err, "/nonexistent/catalog.yaml")
}
