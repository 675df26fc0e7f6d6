package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grcmmap/api/internal/app/report"
)

var errNoReportData = errors.New("no data found to generate report")

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the executive HTML report",
	Example: `  grcctl report --out executive.html
  grcctl report > executive.html`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("out", "", "Write the report to this file instead of stdout")
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out, _ := cmd.Flags().GetString("out")

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	summary, err := e.analytics().Summary(ctx)
	if err != nil {
		return err
	}
	if !summary.HasRisks() {
		return errNoReportData
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return err
	}
	page, err := renderer.Executive(ctx, summary)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if out == "" {
		_, err = cmd.OutOrStdout().Write(page)
		return err
	}
	if err := os.WriteFile(out, page, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", out)
	return nil
}
