package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/grcmmap/api/internal/infra/llm"
	"github.com/grcmmap/api/internal/metrics"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/domain/uow"
	"github.com/grcmmap/api/pkg/logger"
)

// Prompt and fallback texts for finding summaries.
const (
	SummarySystemPrompt = "You are a professional Cyber Security Auditor."
	SummaryUnavailable  = "AI Summary Unavailable (Live API Call Failed)"

	defaultSummaryMaxTokens = 150
	maxSummaryLength        = 2000
)

// FindingSummary is an executive summary of one finding.
type FindingSummary struct {
	FindingID shared.ID `json:"finding_id" yaml:"finding_id"`
	Summary   string    `json:"summary" yaml:"summary"`
}

// summaryContext is what the prompt is built from.
type summaryContext struct {
	title     string
	severity  finding.Severity
	rating    string
	ipAddress string
	controls  []*compliance.Control
}

// FindingSummaryService writes short executive summaries of findings for a
// CISO audience.
type FindingSummaryService struct {
	runner    uow.Runner
	provider  llm.Provider
	maxTokens int
	logger    *logger.Logger
}

// NewFindingSummaryService creates a summary service. A nil provider makes
// the service answer with a canned summary and never call out.
func NewFindingSummaryService(runner uow.Runner, provider llm.Provider, maxTokens int, log *logger.Logger) *FindingSummaryService {
	if maxTokens <= 0 {
		maxTokens = defaultSummaryMaxTokens
	}
	return &FindingSummaryService{
		runner:    runner,
		provider:  provider,
		maxTokens: maxTokens,
		logger:    log.With("service", "finding_summary"),
	}
}

// Summarize returns the summary of a finding. A provider failure is logged
// and answered with SummaryUnavailable; only lookup failures are returned
// as errors.
func (s *FindingSummaryService) Summarize(ctx context.Context, findingID shared.ID) (*FindingSummary, error) {
	ctx, span := tracer.Start(ctx, "finding.Summarize", trace.WithAttributes(
		attribute.String("finding.id", findingID.String()),
	))
	defer span.End()

	sc, err := s.loadContext(ctx, findingID)
	if err != nil {
		return nil, err
	}

	out := &FindingSummary{FindingID: findingID}
	if s.provider == nil {
		out.Summary = cannedSummary(sc)
		metrics.SummariesTotal.WithLabelValues(metrics.SummaryModeCanned).Inc()
		return out, nil
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: SummarySystemPrompt,
		UserPrompt:   buildSummaryPrompt(sc),
		MaxTokens:    s.maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("llm summary call failed",
			"error", err,
			"provider", s.provider.Name(),
			"model", s.provider.Model(),
			"finding_id", findingID.String(),
		)
		out.Summary = SummaryUnavailable
		metrics.SummariesTotal.WithLabelValues(metrics.SummaryModeUnavailable).Inc()
		return out, nil
	}

	text := sanitizeSummary(resp.Content)
	if text == "" {
		s.logger.Warn("llm returned an empty summary", "finding_id", findingID.String())
		out.Summary = SummaryUnavailable
		metrics.SummariesTotal.WithLabelValues(metrics.SummaryModeUnavailable).Inc()
		return out, nil
	}
	out.Summary = text
	metrics.SummariesTotal.WithLabelValues(metrics.SummaryModeLive).Inc()
	return out, nil
}

func (s *FindingSummaryService) loadContext(ctx context.Context, findingID shared.ID) (*summaryContext, error) {
	var sc summaryContext
	err := s.runner.Do(ctx, func(ctx context.Context, u uow.UnitOfWork) error {
		f, err := u.Findings().GetByID(ctx, findingID)
		if err != nil {
			return err
		}
		a, err := u.Assets().GetByID(ctx, f.AssetID())
		if err != nil {
			return fmt.Errorf("load asset of finding %s: %w", findingID, err)
		}
		sc.title = f.Title()
		sc.severity = f.Severity()
		sc.ipAddress = a.IPAddress()

		r, err := u.Risks().GetByFindingID(ctx, findingID)
		switch {
		case err == nil:
			sc.rating = r.Rating().String()
		case errors.Is(err, shared.ErrNotFound):
		default:
			return fmt.Errorf("load risk of finding %s: %w", findingID, err)
		}

		sc.controls, err = u.Controls().ListByFinding(ctx, findingID)
		if err != nil {
			return fmt.Errorf("load controls of finding %s: %w", findingID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func cannedSummary(sc *summaryContext) string {
	return fmt.Sprintf("AI Summary: A %s risk was identified on asset %s. "+
		"This vulnerability directly impacts the ISO 27001 compliance posture and requires "+
		"immediate attention from the engineering team to prevent potential service disruption.",
		sc.severity, sc.ipAddress)
}

func buildSummaryPrompt(sc *summaryContext) string {
	related := "None mapped"
	if len(sc.controls) > 0 {
		names := make([]string, 0, len(sc.controls))
		for _, c := range sc.controls {
			names = append(names, c.Name())
		}
		related = strings.Join(names, "; ")
	}
	rating := sc.rating
	if rating == "" {
		rating = "Not assessed"
	}

	var b strings.Builder
	b.WriteString("Act as a lead Information Security Auditor. Review the following technical finding and its assessed risk.\n")
	b.WriteString("Write a concise, 3-sentence summary for a CISO or VP of Engineering.\n")
	b.WriteString("Focus on the business impact, not just the technical details.\n\n")
	fmt.Fprintf(&b, "1. Finding Title: %s\n", sc.title)
	fmt.Fprintf(&b, "2. Severity: %s (risk rating: %s)\n", sc.severity, rating)
	fmt.Fprintf(&b, "3. Asset/IP: %s\n", sc.ipAddress)
	fmt.Fprintf(&b, "4. Related Controls: %s\n\n", related)
	b.WriteString("Summary (3 sentences only):")
	return b.String()
}

// sanitizeSummary trims provider output, drops control characters other
// than newlines and caps the length.
func sanitizeSummary(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = CleanText(line)
	}
	s = strings.TrimSpace(strings.Join(lines, "\n"))
	if r := []rune(s); len(r) > maxSummaryLength {
		s = string(r[:maxSummaryLength])
	}
	return s
}
