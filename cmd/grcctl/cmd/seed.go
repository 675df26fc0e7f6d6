package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grcmmap/api/internal/app"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed frameworks, controls and citations from the catalog",
	Long: `Seed writes the active compliance catalog into the database.

Existing frameworks, controls and links are left untouched, so running
seed more than once is safe.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := app.NewCatalogSeeder(e.tx, e.catalog, e.log).Seed(ctx)
	if err != nil {
		return err
	}
	return printSeedResult(cmd.OutOrStdout(), res)
}

func printSeedResult(w io.Writer, res *app.SeedResult) error {
	if done, err := printStructured(w, flagOutput, res); done {
		return err
	}
	t := newTable(w, "FRAMEWORKS", "CONTROLS", "CITATIONS")
	t.AddRow(strconv.Itoa(res.Frameworks), strconv.Itoa(res.Controls), strconv.Itoa(res.Citations))
	if err := t.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\nCatalog seeded.")
	return err
}
