package pipeline

import (
	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/model"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// Validate folds the fact log into the resolved fact table and checks
// the result for consistency. Any fatal diagnostic recorded here aborts
// the run before emission.
//
// Checks, in order:
//  1. overlay resolution: shadowed rows are reported as warnings by the
//     fold itself;
//  2. referential integrity: every dimension value must name a declared
//     member of its set — a dangling reference is fatal;
//  3. required dimensions: every parameter fact must populate exactly
//     the dimensions its attribute rule requires.
func Validate(m *model.Model, rules *Rules, c *diag.Collector) {
	m.ResolveOverlay(c)

	for _, f := range m.SortedFacts() {
		for _, d := range model.Dimensions {
			v := f.Key.Dim(d)
			if v == "" {
				continue
			}
			if !m.Set(d.SetName()).Has(v) {
				c.Fatalf("validate", f.Key.String(),
					"%s %q from %s is not a declared %s member", d, v, f.Source, d.SetName())
			}
		}

		if f.Kind != tables.KindParameter {
			continue
		}
		rule, ok := rules.Lookup(f.Key.Param)
		if !ok {
			continue
		}
		for _, d := range model.Dimensions {
			if rule.Requires(d) && f.Key.Dim(d) == "" {
				c.Fatalf("validate", f.Key.String(),
					"required %s is empty on fact from %s", d, f.Source)
			}
		}
	}
}
