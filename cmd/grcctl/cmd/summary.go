package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/infra/llm"
	"github.com/grcmmap/api/pkg/domain/analytics"
	"github.com/grcmmap/api/pkg/domain/shared"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [FINDING_ID]",
	Short: "Show the dashboard summary, or the executive summary of one finding",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var findingID shared.ID
	if len(args) == 1 {
		id, err := shared.IDFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid finding ID %q", args[0])
		}
		findingID = id
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if len(args) == 0 {
		summary, err := e.analytics().Summary(ctx)
		if err != nil {
			return err
		}
		return printDashboardSummary(cmd.OutOrStdout(), summary)
	}

	provider, err := llm.NewProvider(e.cfg.LLM)
	if err != nil {
		return err
	}
	out, err := app.NewFindingSummaryService(e.tx, provider, e.cfg.LLM.MaxTokens, e.log).Summarize(ctx, findingID)
	if err != nil {
		return err
	}
	if done, err := printStructured(cmd.OutOrStdout(), flagOutput, out); done {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Summary)
	return err
}

func printDashboardSummary(w io.Writer, s *analytics.Summary) error {
	if done, err := printStructured(w, flagOutput, s); done {
		return err
	}
	if !s.HasRisks() {
		_, err := fmt.Fprintln(w, "No risks recorded.")
		return err
	}

	t := newTable(w, "RATING", "RISKS")
	for _, rc := range s.RisksByRating {
		t.AddRow(rc.Rating, strconv.FormatInt(rc.Count, 10))
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	t = newTable(w, "CONTROL", "FINDINGS")
	for _, cc := range s.ControlMaturity {
		t.AddRow(cc.ControlName, strconv.FormatInt(cc.FindingCount, 10))
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	t = newTable(w, "DATE", "FINDINGS")
	for _, tp := range s.FindingTrend {
		t.AddRow(tp.Date, strconv.FormatInt(tp.Count, 10))
	}
	return t.Flush()
}
