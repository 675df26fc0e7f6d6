package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/app/ingest"
	"github.com/grcmmap/api/internal/infra/archive"
	"github.com/grcmmap/api/pkg/validator"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE",
	Short: "Ingest a scanner CSV export",
	Example: `  grcctl ingest nessus-2024-05.csv --source nessus
  grcctl ingest - --source qualys < export.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("source", "", "Source tool name, e.g. nessus (required)")
	_ = ingestCmd.MarkFlagRequired("source")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	source, _ := cmd.Flags().GetString("source")

	var body io.Reader
	filename := args[0]
	if filename == "-" {
		body = cmd.InOrStdin()
		filename = "stdin.csv"
	} else {
		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("open %s: %w", filename, err)
		}
		defer f.Close()
		body = f
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	svc := ingest.NewService(e.tx, app.NewComplianceMapper(e.catalog, e.log), validator.New(), e.log)
	if e.cfg.Archive.Enabled {
		archiver, err := archive.NewS3Archiver(ctx, e.cfg.Archive, e.log)
		if err != nil {
			return err
		}
		svc.SetArchiver(archiver)
	}

	res, err := svc.Ingest(ctx, ingest.Input{Source: source, Filename: filepath.Base(filename), Body: body})
	if err != nil {
		return err
	}
	return printIngestResult(cmd.OutOrStdout(), res)
}

func printIngestResult(w io.Writer, res *ingest.Result) error {
	if done, err := printStructured(w, flagOutput, res); done {
		return err
	}
	preview := "-"
	if res.PreviewFindingID != nil {
		preview = res.PreviewFindingID.String()
	}
	t := newTable(w, "SOURCE", "COUNT", "SKIPPED", "PREVIEW FINDING", "CONTROLS", "ARCHIVE KEY")
	t.AddRow(
		res.Source,
		strconv.Itoa(res.Count),
		strconv.Itoa(res.Skipped),
		preview,
		dashIfEmpty(strings.Join(res.MappedControlsPreview, "; ")),
		dashIfEmpty(res.ArchiveKey),
	)
	if err := t.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\n"+res.Status+".")
	return err
}
