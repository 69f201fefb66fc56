package pipeline

import (
	"strconv"
	"strings"

	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/model"
)

// Expand replaces every wildcard token in the fact log with the concrete
// members it denotes, in a single pass over the fully loaded set tables.
// Token semantics per dimension value v against the dimension's set:
//
//	ALL / *        every declared member
//	the set name   every declared member
//	lo-hi          declared years within the inclusive range (year only)
//	group token    members whose any attribute equals v (e.g. a season,
//	               a time-slice level, a commodity group)
//	otherwise      v passes through as a concrete member
//
// A token that matches nothing drops the row with a single warning; a
// pass-through value that names no member is left for the validator,
// which treats dangling references as fatal.
//
// Expansion runs before overlay resolution so that rows produced from a
// wildcard collide with later concrete overrides of the same key.
func Expand(m *model.Model, c *diag.Collector) {
	expanded := make([]model.FactRow, 0, len(m.Log))

	for _, f := range m.Log {
		keys := []model.Key{f.Key}
		dropped := false

		for _, d := range model.Dimensions {
			v := f.Key.Dim(d)
			if v == "" {
				continue
			}
			members, wildcard := expandToken(m, d, v)
			if !wildcard {
				continue
			}
			if len(members) == 0 {
				c.Warnf("expand", f.Key.String(),
					"%s row from %s dropped: %s token %q matches no declared member", f.Kind, f.Source, d, v)
				dropped = true
				break
			}
			next := make([]model.Key, 0, len(keys)*len(members))
			for _, k := range keys {
				for _, member := range members {
					next = append(next, k.WithDim(d, member))
				}
			}
			keys = next
		}
		if dropped {
			continue
		}

		for _, k := range keys {
			row := f
			row.Key = k
			expanded = append(expanded, row)
		}
	}
	m.Log = expanded
}

// expandToken resolves one dimension value. wildcard is false when the
// value is a concrete member (or an unknown name left for validation).
func expandToken(m *model.Model, d model.Dimension, v string) (members []string, wildcard bool) {
	set := m.Set(d.SetName())

	if strings.EqualFold(v, "ALL") || v == "*" || strings.EqualFold(v, set.Name()) {
		return set.MemberNames(), true
	}
	if d == model.DimYear {
		if lo, hi, ok := parseYearRange(v); ok {
			return yearsWithin(m, lo, hi), true
		}
	}
	if set.Has(v) {
		return nil, false
	}
	if matched := set.MatchAttr(v); len(matched) > 0 {
		return matched, true
	}
	return nil, false
}

func parseYearRange(v string) (lo, hi int, ok bool) {
	if !model.IsWildcard(model.DimYear, v) || strings.EqualFold(v, "ALL") || v == "*" {
		return 0, 0, false
	}
	i := strings.IndexByte(v, '-')
	lo, _ = strconv.Atoi(v[:i])
	hi, _ = strconv.Atoi(v[i+1:])
	return lo, hi, true
}

func yearsWithin(m *model.Model, lo, hi int) []string {
	var out []string
	for _, y := range m.Years() {
		n, err := strconv.Atoi(y)
		if err != nil {
			continue
		}
		if n >= lo && n <= hi {
			out = append(out, y)
		}
	}
	return out
}
