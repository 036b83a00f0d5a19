// Package widget declares what each dashboard card polls and how its
// answers are turned into chart samples, tables or key-value lists.
package widget

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
)

// Kind is the declared shape of a widget. It decides how a payload is read.
type Kind string

const (
	KindLine      Kind = "line"
	KindMultiLine Kind = "multi-line"
	KindTable     Kind = "table"
	KindKeyValue  Kind = "key-value"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindLine, KindMultiLine, KindTable, KindKeyValue:
		return true
	}
	return false
}

// Chart reports whether the kind keeps a series store.
func (k Kind) Chart() bool {
	return k == KindLine || k == KindMultiLine
}

// MetricSpec is one labeled value rendered under a line chart.
type MetricSpec struct {
	Name string `yaml:"name" mapstructure:"name"`
	Expr string `yaml:"expr" mapstructure:"expr"`
}

// Spec declares one widget.
type Spec struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Heading string `yaml:"heading" mapstructure:"heading"`
	Info    string `yaml:"info,omitempty" mapstructure:"info"`
	Module  string `yaml:"module" mapstructure:"module"`
	Kind    Kind   `yaml:"kind" mapstructure:"kind"`
	// Interval between polls. Zero means the session default.
	Interval time.Duration `yaml:"interval,omitempty" mapstructure:"interval"`

	// Min and Max bound a line chart; Max is also the threshold reference
	// for the line color.
	Min float64 `yaml:"min,omitempty" mapstructure:"min"`
	Max float64 `yaml:"max,omitempty" mapstructure:"max"`
	// Value is a jq expression applied to every payload before it is read.
	// Line charts need it to produce a number.
	Value   string       `yaml:"value,omitempty" mapstructure:"value"`
	Metrics []MetricSpec `yaml:"metrics,omitempty" mapstructure:"metrics"`
	Units   string       `yaml:"units,omitempty" mapstructure:"units"`
	// MinScale is the lowest axis bound of a multi-line chart.
	MinScale float64 `yaml:"min_scale,omitempty" mapstructure:"min_scale"`
}

// Title is the heading, falling back to the name.
func (s Spec) Title() string {
	if s.Heading != "" {
		return s.Heading
	}
	return s.Name
}

// Validate checks the static fields of a spec.
func (s Spec) Validate() error {
	if s.Module == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Widget %q has no module", s.Title()),
			"Set module to the agent module name, e.g. cpu_utilization")
	}
	if !s.Kind.Valid() {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Widget %q has unknown kind %q", s.Title(), s.Kind),
			"Use one of: line, multi-line, table, key-value")
	}
	if s.Interval < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Widget %q has a negative interval", s.Title()), "")
	}
	if s.Kind == KindLine && s.Max > 0 && s.Min >= s.Max {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Widget %q has min >= max", s.Title()), "")
	}
	if _, err := Compile(s.Value); err != nil {
		return err
	}
	for _, m := range s.Metrics {
		if _, err := Compile(m.Expr); err != nil {
			return err
		}
	}
	return nil
}

// Page is a named group of widgets shown together.
type Page struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Title   string `yaml:"title" mapstructure:"title"`
	Widgets []Spec `yaml:"widgets" mapstructure:"widgets"`
}

// ValidatePages checks page names are unique and every widget is valid.
func ValidatePages(pages []Page) error {
	if len(pages) == 0 {
		return errors.New(errors.ErrConfig, "No dashboard pages configured",
			"Remove the pages key to use the built-in pages")
	}
	seen := make(map[string]bool)
	for _, p := range pages {
		if p.Name == "" || p.Name == LoadingPage {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid page name %q", p.Name),
				"Page names must be non-empty and not \"loading\"")
		}
		if seen[p.Name] {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Duplicate page %q", p.Name), "")
		}
		seen[p.Name] = true
		for _, w := range p.Widgets {
			if err := w.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
