package pipeline

import (
	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/model"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// ResolveDefaults fills the optional dimensions every fact in the log
// is missing, in precedence order, and rejects rows whose required
// dimensions cannot be resolved. It is idempotent: a second pass over
// an already-resolved log changes nothing, because only empty slots are
// filled.
//
// Per-dimension precedence:
//
//	time slice:  scenario default > process/commodity TSLvl attribute >
//	             attribute default > global default
//	region:      workbook region hint > ALL wildcard
//	year:        declared default year > reject with warning
//
// Process and commodity have no sensible default; a rule that requires
// one rejects the row when it is empty.
func ResolveDefaults(m *model.Model, rules *Rules, c *diag.Collector) {
	kept := m.Log[:0]
	for _, f := range m.Log {
		if f.Kind == tables.KindMapping {
			if f.Key.Region == "" {
				f.Key.Region = regionDefault(f)
			}
			kept = append(kept, f)
			continue
		}

		rule, ok := rules.Lookup(f.Key.Param)
		if !ok {
			// Normalization only emits known attributes; a rule removed
			// by a user override file still surfaces here.
			c.Warnf("defaults", f.Key.String(), "row from %s dropped: no rule for attribute", f.Source)
			continue
		}

		if rejected := fillDefaults(m, rules, rule, &f, c); rejected {
			continue
		}
		kept = append(kept, f)
	}
	m.Log = kept
}

func fillDefaults(m *model.Model, rules *Rules, rule AttrRule, f *model.FactRow, c *diag.Collector) (rejected bool) {
	for _, d := range model.Dimensions {
		if !rule.Requires(d) || f.Key.Dim(d) != "" {
			continue
		}
		switch d {
		case model.DimRegion:
			f.Key.Region = regionDefault(*f)
		case model.DimTimeSlice:
			f.Key.TimeSlice = timeSliceDefault(m, rules, rule, *f)
		case model.DimYear:
			if m.DefaultYear == "" {
				c.Warnf("defaults", f.Key.String(),
					"row from %s dropped: no year and no default year declared", f.Source)
				return true
			}
			f.Key.Year = m.DefaultYear
		default:
			c.Warnf("defaults", f.Key.String(),
				"row from %s dropped: required %s is empty", f.Source, d)
			return true
		}
	}
	return false
}

func regionDefault(f model.FactRow) string {
	if f.RegionHint != "" {
		return f.RegionHint
	}
	return "ALL"
}

func timeSliceDefault(m *model.Model, rules *Rules, rule AttrRule, f model.FactRow) string {
	if f.TSDefault != "" {
		return f.TSDefault
	}
	if ts := memberLevel(m, model.DimProcess, f.Key.Process); ts != "" {
		return ts
	}
	if ts := memberLevel(m, model.DimCommodity, f.Key.Commodity); ts != "" {
		return ts
	}
	if rule.TimeSlice != "" {
		return rule.TimeSlice
	}
	return rules.Global.TimeSlice
}

// memberLevel returns the TSLvl attribute declared on a process or
// commodity member, or "" when the member or attribute is absent.
func memberLevel(m *model.Model, d model.Dimension, member string) string {
	if member == "" {
		return ""
	}
	def, ok := m.Set(d.SetName()).Get(member)
	if !ok {
		return ""
	}
	return def.Attr(tables.ColTSLevel)
}
