package model

import (
	"sort"

	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// FactKey keys the resolved fact table.
type FactKey struct {
	Kind tables.TableKind
	Key  Key
}

// Model owns all set definitions and fact rows for one conversion run.
// It is mutated only by the pipeline stages in fixed order and is never
// shared across concurrent runs.
type Model struct {
	sets map[string]*SetTable

	// Log is the append-only fact insertion log in source order.
	Log []FactRow

	// Facts is the overlay-resolved fact table, computed by
	// ResolveOverlay as a fold over Log.
	Facts map[FactKey]FactRow

	// DefaultYear is the globally declared default year ("" when no
	// ~DEFAULTYEAR table was loaded).
	DefaultYear string

	seq int
}

// New creates an empty model.
func New() *Model {
	return &Model{sets: make(map[string]*SetTable)}
}

// Set returns the named set table, creating it on first use so that a
// set can be referenced (and found empty) before any member is declared.
func (m *Model) Set(name string) *SetTable {
	s, ok := m.sets[name]
	if !ok {
		s = NewSetTable(name)
		m.sets[name] = s
	}
	return s
}

// SetNames returns the names of all known sets, sorted.
func (m *Model) SetNames() []string {
	names := make([]string, 0, len(m.sets))
	for n := range m.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Declare records a set member with overlay semantics and reports
// whether an earlier declaration was shadowed.
func (m *Model) Declare(def SetDefinition) bool {
	return m.Set(def.Set).Declare(def)
}

// Append adds fact rows to the insertion log, stamping each with the
// next global sequence number. Must be called in source order.
func (m *Model) Append(rows ...FactRow) {
	for _, r := range rows {
		r.Source.Seq = m.seq
		m.seq++
		m.Log = append(m.Log, r)
	}
}

// ResolveOverlay folds the fact log into the resolved fact table,
// last write wins. Earlier rows displaced by a later row with the same
// (kind, dimension-tuple) key are reported as shadowed warnings, which
// makes overlay precedence auditable independent of load timing.
func (m *Model) ResolveOverlay(c *diag.Collector) {
	m.Facts = make(map[FactKey]FactRow, len(m.Log))
	for _, row := range m.Log {
		fk := FactKey{Kind: row.Kind, Key: row.Key}
		if prev, ok := m.Facts[fk]; ok {
			c.Warnf("validate", row.Key.String(),
				"value %v from %s shadowed by %s", prev.Value, prev.Source, row.Source)
		}
		m.Facts[fk] = row
	}
}

// SortedFacts returns the resolved facts ordered by kind, parameter name
// and dimension tuple, the deterministic emission order.
func (m *Model) SortedFacts() []FactRow {
	out := make([]FactRow, 0, len(m.Facts))
	for _, f := range m.Facts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Key.Param != out[j].Key.Param {
			return out[i].Key.Param < out[j].Key.Param
		}
		return out[i].Key.Tuple() < out[j].Key.Tuple()
	})
	return out
}

// Years returns the declared milestone years in first-seen order.
func (m *Model) Years() []string {
	return m.Set("YEAR").MemberNames()
}
