// Package report renders analytics summaries as HTML documents.
package report

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/grcmmap/api/internal/metrics"
	"github.com/grcmmap/api/pkg/domain/analytics"
)

// Title is the heading of the executive report.
const Title = "Project GRC-MMAP Executive Summary"

// NoDate is shown when there is no trend data to date the report from.
const NoDate = "N/A"

// ErrRender is wrapped by every template execution failure.
var ErrRender = errors.New("report rendering failed")

//go:embed templates/*.html
var templateFS embed.FS

var tracer = otel.Tracer("github.com/grcmmap/api/internal/app/report")

var errorPage = template.Must(template.New("error").Parse(
	`<h1>Report Generation Error!</h1>` +
		`<p>The application failed while rendering the report.</p>` +
		`<p>Source of Error: <b>{{.}}</b></p>`))

// Renderer renders the executive report.
type Renderer struct {
	executive *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/executive.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &Renderer{executive: tmpl}, nil
}

type executiveView struct {
	ReportTitle    string
	GenerationDate string
	TotalRisks     int64
	TotalFindings  int64
	Data           *analytics.Summary
}

// Executive renders the executive summary. The report is dated with the
// most recent trend day. Output is only returned when the whole document
// rendered.
func (r *Renderer) Executive(ctx context.Context, summary *analytics.Summary) ([]byte, error) {
	_, span := tracer.Start(ctx, "report.Executive")
	defer span.End()

	if summary == nil {
		summary = &analytics.Summary{}
	}

	view := executiveView{
		ReportTitle:    Title,
		GenerationDate: NoDate,
		Data:           summary,
	}
	if date, ok := summary.LatestTrendDate(); ok {
		view.GenerationDate = date
	}
	for _, rc := range summary.RisksByRating {
		view.TotalRisks += rc.Count
	}
	for _, tp := range summary.FindingTrend {
		view.TotalFindings += tp.Count
	}

	var buf bytes.Buffer
	if err := r.executive.Execute(&buf, view); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		metrics.ReportsGeneratedTotal.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	metrics.ReportsGeneratedTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	return buf.Bytes(), nil
}

// ErrorPage renders the diagnostic page served when a report fails. The
// error text is escaped.
func ErrorPage(err error) []byte {
	var buf bytes.Buffer
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if execErr := errorPage.Execute(&buf, msg); execErr != nil {
		return []byte("<h1>Report Generation Error!</h1>")
	}
	return buf.Bytes()
}
