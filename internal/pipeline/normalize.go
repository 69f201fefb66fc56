// Package pipeline implements the conversion stages between raw tagged
// tables and the emitted model: normalization, defaults resolution,
// wildcard expansion, overlay resolution and consistency validation.
package pipeline

import (
	"strconv"
	"strings"

	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/model"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// tableResult is one table's normalized contribution. Normalization of
// independent tables runs in parallel; results merge back into the model
// strictly in source order, so the result carries its own collector.
type tableResult struct {
	sets        []model.SetDefinition
	facts       []model.FactRow
	defaultYear string
	diags       diag.Collector
}

// normalizeTable classifies and normalizes one raw table. It is pure:
// all inputs arrive as arguments and all outputs, diagnostics included,
// leave through the result.
func normalizeTable(t tables.RawTable, rules *Rules) tableResult {
	var res tableResult

	kind, err := tables.Classify(t)
	if err != nil {
		res.diags.Warnf("dispatch", t.Ref(), "table dropped: %v", err)
		return res
	}

	switch kind {
	case tables.KindSet:
		normalizeSet(t, &res)
	case tables.KindMapping:
		normalizeTopology(t, &res)
	case tables.KindParameter, tables.KindScenario:
		// Scenario rows produce ordinary parameter facts so that they
		// collide with base facts in the overlay fold.
		normalizeFacts(t, rules, &res)
	}
	return res
}

// memberColumn returns the column holding the declared member for a
// set-definition tag.
func memberColumn(tag tables.Tag) string {
	switch tag {
	case tables.TagRegions:
		return tables.ColRegion
	case tables.TagTimeSlices:
		return tables.ColTimeSlice
	case tables.TagMilestoneYears, tables.TagDefaultYear:
		return tables.ColYear
	case tables.TagCommodities:
		return tables.ColCommodity
	case tables.TagProcesses:
		return tables.ColProcess
	default:
		return ""
	}
}

func normalizeSet(t tables.RawTable, res *tableResult) {
	memberCol := memberColumn(t.Tag)
	setName := t.Tag.SetName()

	for i, row := range t.Rows {
		member := t.Cell(row, memberCol)
		if member == "" {
			res.diags.Warnf("normalize", t.Ref(), "row %d dropped: empty %s cell", i+1, memberCol)
			continue
		}

		var attrs map[string]string
		for j, col := range t.Header {
			if col == memberCol || col == "" || j >= len(row) {
				continue
			}
			if v := strings.TrimSpace(row[j]); v != "" {
				if attrs == nil {
					attrs = make(map[string]string)
				}
				attrs[col] = v
			}
		}
		res.sets = append(res.sets, model.SetDefinition{Set: setName, Member: member, Attrs: attrs})

		if t.Tag == tables.TagDefaultYear {
			res.defaultYear = member
		}
	}
}

func normalizeTopology(t tables.RawTable, res *tableResult) {
	for i, row := range t.Rows {
		var param string
		switch io := strings.ToUpper(t.Cell(row, tables.ColIO)); io {
		case "IN", "I", "INPUT":
			param = "TOP_IN"
		case "OUT", "O", "OUTPUT":
			param = "TOP_OUT"
		default:
			res.diags.Warnf("normalize", t.Ref(), "row %d dropped: unrecognized IO value %q", i+1, io)
			continue
		}

		region := t.Cell(row, tables.ColRegion)
		for _, proc := range splitList(t.Cell(row, tables.ColProcess)) {
			for _, comm := range splitList(t.Cell(row, tables.ColCommodity)) {
				res.facts = append(res.facts, model.FactRow{
					Kind: tables.KindMapping,
					Key: model.Key{
						Param:     param,
						Region:    region,
						Process:   proc,
						Commodity: comm,
					},
					Value:      1,
					RegionHint: t.Origin.RegionHint,
					Source:     model.Source{Workbook: t.Origin.Workbook, Sheet: t.Origin.Sheet},
				})
			}
		}
	}
}

func normalizeFacts(t tables.RawTable, rules *Rules, res *tableResult) {
	for i, row := range t.Rows {
		attr := t.Cell(row, tables.ColAttribute)
		if attr == "" {
			res.diags.Warnf("normalize", t.Ref(), "row %d dropped: empty attribute", i+1)
			continue
		}
		rule, ok := rules.Lookup(attr)
		if !ok {
			res.diags.Warnf("normalize", t.Ref(), "row %d dropped: unknown attribute %q", i+1, attr)
			continue
		}

		raw := t.Cell(row, tables.ColValue)
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			res.diags.Warnf("normalize", t.Ref(), "row %d dropped: bad value %q for %s", i+1, raw, attr)
			continue
		}
		if rule.Percent {
			value /= 100
		}

		base := model.FactRow{
			Kind:       tables.KindParameter,
			Key:        model.Key{Param: strings.ToUpper(attr)},
			Value:      value,
			TSDefault:  t.Cell(row, tables.ColTSLevel),
			RegionHint: t.Origin.RegionHint,
			Source:     model.Source{Workbook: t.Origin.Workbook, Sheet: t.Origin.Sheet},
		}

		// Comma lists are locally resolvable: expand their cartesian
		// product now. Wildcard tokens (ALL, ranges, group names) pass
		// through for the expander.
		keys := []model.Key{base.Key}
		for _, d := range model.Dimensions {
			if !rule.Requires(d) {
				continue
			}
			values := splitList(t.Cell(row, dimensionColumn(d)))
			next := make([]model.Key, 0, len(keys)*len(values))
			for _, k := range keys {
				for _, v := range values {
					next = append(next, k.WithDim(d, v))
				}
			}
			keys = next
		}
		for _, k := range keys {
			f := base
			f.Key = k
			res.facts = append(res.facts, f)
		}
	}
}

// dimensionColumn maps a fact dimension onto its canonical table column.
func dimensionColumn(d model.Dimension) string {
	switch d {
	case model.DimRegion:
		return tables.ColRegion
	case model.DimProcess:
		return tables.ColProcess
	case model.DimCommodity:
		return tables.ColCommodity
	case model.DimTimeSlice:
		return tables.ColTimeSlice
	case model.DimYear:
		return tables.ColYear
	default:
		return ""
	}
}

// splitList splits a comma-separated cell into trimmed elements. An
// empty cell yields a single empty element so cartesian expansion keeps
// the dimension slot for defaults resolution.
func splitList(cell string) []string {
	if cell == "" {
		return []string{""}
	}
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}
