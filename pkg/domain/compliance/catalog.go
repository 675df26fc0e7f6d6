package compliance

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// FrameworkSpec declares a framework to seed.
type FrameworkSpec struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Citation is a framework-specific reference for a control.
type Citation struct {
	Framework string `yaml:"framework" json:"framework"`
	Reference string `yaml:"reference" json:"reference"`
}

// ControlSpec declares a control to seed and the framework clauses it
// satisfies.
type ControlSpec struct {
	Name      string     `yaml:"name" json:"name"`
	CIADomain string     `yaml:"cia_domain" json:"cia_domain"`
	Citations []Citation `yaml:"citations" json:"citations"`
}

// KeywordRule links a control to any finding whose title contains one of
// the keywords, compared case-insensitively.
type KeywordRule struct {
	Control  string   `yaml:"control" json:"control"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type catalogDocument struct {
	Frameworks []FrameworkSpec `yaml:"frameworks"`
	Controls   []ControlSpec   `yaml:"controls"`
	Rules      []KeywordRule   `yaml:"rules"`
}

// Catalog is the immutable set of frameworks, controls and keyword rules
// the service runs with. Accessors return copies.
type Catalog struct {
	frameworks []FrameworkSpec
	controls   []ControlSpec
	rules      []KeywordRule
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in compliance catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalogFile reads a catalog from a YAML file.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compliance catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return NewCatalog(doc.Frameworks, doc.Controls, doc.Rules)
}

// NewCatalog builds a catalog and checks that every citation and rule
// refers to a declared framework or control.
func NewCatalog(frameworks []FrameworkSpec, controls []ControlSpec, rules []KeywordRule) (*Catalog, error) {
	fwNames := make(map[string]bool, len(frameworks))
	for _, fw := range frameworks {
		if fw.Name == "" {
			return nil, fmt.Errorf("%w: framework without name", ErrInvalidCatalog)
		}
		if fwNames[fw.Name] {
			return nil, fmt.Errorf("%w: duplicate framework %q", ErrInvalidCatalog, fw.Name)
		}
		fwNames[fw.Name] = true
	}

	ctlNames := make(map[string]bool, len(controls))
	for _, ctl := range controls {
		if ctl.Name == "" {
			return nil, fmt.Errorf("%w: control without name", ErrInvalidCatalog)
		}
		if ctlNames[ctl.Name] {
			return nil, fmt.Errorf("%w: duplicate control %q", ErrInvalidCatalog, ctl.Name)
		}
		ctlNames[ctl.Name] = true
		for _, cit := range ctl.Citations {
			if !fwNames[cit.Framework] {
				return nil, fmt.Errorf("%w: control %q cites unknown framework %q",
					ErrInvalidCatalog, ctl.Name, cit.Framework)
			}
		}
	}

	cleaned := make([]KeywordRule, 0, len(rules))
	for _, r := range rules {
		if !ctlNames[r.Control] {
			return nil, fmt.Errorf("%w: rule references unknown control %q", ErrInvalidCatalog, r.Control)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("%w: rule for %q has no keywords", ErrInvalidCatalog, r.Control)
		}
		cleaned = append(cleaned, KeywordRule{Control: r.Control, Keywords: kws})
	}

	c := &Catalog{
		frameworks: append([]FrameworkSpec(nil), frameworks...),
		controls:   make([]ControlSpec, len(controls)),
		rules:      cleaned,
	}
	for i, ctl := range controls {
		ctl.Citations = append([]Citation(nil), ctl.Citations...)
		c.controls[i] = ctl
	}
	return c, nil
}

// Frameworks returns the declared frameworks.
func (c *Catalog) Frameworks() []FrameworkSpec {
	return append([]FrameworkSpec(nil), c.frameworks...)
}

// Controls returns the declared controls.
func (c *Catalog) Controls() []ControlSpec {
	out := make([]ControlSpec, len(c.controls))
	for i, ctl := range c.controls {
		ctl.Citations = append([]Citation(nil), ctl.Citations...)
		out[i] = ctl
	}
	return out
}

// Rules returns the keyword rules in evaluation order.
func (c *Catalog) Rules() []KeywordRule {
	out := make([]KeywordRule, len(c.rules))
	for i, r := range c.rules {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

// Match returns the names of the controls whose rules match title, in
// rule order and without duplicates.
func (c *Catalog) Match(title string) []string {
	lower := strings.ToLower(title)
	seen := make(map[string]bool)
	var names []string
	for _, r := range c.rules {
		if seen[r.Control] {
			continue
		}
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				seen[r.Control] = true
				names = append(names, r.Control)
				break
			}
		}
	}
	return names
}
