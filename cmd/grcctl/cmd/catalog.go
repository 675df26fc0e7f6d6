package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grcmmap/api/pkg/domain/compliance"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the active compliance catalog",
	Long: `Print the frameworks, controls, citations and keyword rules of the
active catalog. Uses the built-in catalog unless --catalog is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog(nil)
		if err != nil {
			return err
		}
		return printCatalog(cmd.OutOrStdout(), catalog)
	},
}

// catalogView is the structured form of a catalog.
type catalogView struct {
	Frameworks []compliance.FrameworkSpec `json:"frameworks" yaml:"frameworks"`
	Controls   []compliance.ControlSpec   `json:"controls" yaml:"controls"`
	Rules      []compliance.KeywordRule   `json:"rules" yaml:"rules"`
}

func printCatalog(w io.Writer, c *compliance.Catalog) error {
	view := catalogView{Frameworks: c.Frameworks(), Controls: c.Controls(), Rules: c.Rules()}
	if done, err := printStructured(w, flagOutput, view); done {
		return err
	}

	t := newTable(w, "FRAMEWORK", "VERSION")
	for _, f := range view.Frameworks {
		t.AddRow(f.Name, dashIfEmpty(f.Version))
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	t = newTable(w, "CONTROL", "CIA DOMAIN", "FRAMEWORK", "CITATION")
	for _, ctl := range view.Controls {
		if len(ctl.Citations) == 0 {
			t.AddRow(ctl.Name, dashIfEmpty(ctl.CIADomain), "-", "-")
			continue
		}
		for _, cit := range ctl.Citations {
			t.AddRow(ctl.Name, dashIfEmpty(ctl.CIADomain), cit.Framework, cit.Reference)
		}
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	t = newTable(w, "CONTROL", "KEYWORDS")
	for _, r := range view.Rules {
		t.AddRow(r.Control, strings.Join(r.Keywords, ", "))
	}
	return t.Flush()
}
