// Package model holds the normalized relational representation of one
// conversion job: set definitions, the append-only fact log, and the
// overlay-resolved fact table.
package model

// SetDefinition is one declared member of a named set, with optional
// attributes (e.g. a time slice's SEASON and LEVEL, a process's default
// TSLvl).
type SetDefinition struct {
	Set    string
	Member string
	Attrs  map[string]string
}

// Attr returns the named attribute or "".
func (d SetDefinition) Attr(name string) string {
	return d.Attrs[name]
}

// SetTable holds the members of one set with overlay semantics: a later
// declaration for an existing member replaces it in place, keeping the
// member's first-seen position so output order is stable across reloads.
type SetTable struct {
	name    string
	order   []string
	members map[string]SetDefinition
}

// NewSetTable creates an empty set table.
func NewSetTable(name string) *SetTable {
	return &SetTable{name: name, members: make(map[string]SetDefinition)}
}

// Name returns the set name (REG, TS, YEAR, COM, PRC).
func (s *SetTable) Name() string { return s.name }

// Declare adds or overwrites a member. It reports whether an earlier
// declaration was shadowed.
func (s *SetTable) Declare(def SetDefinition) (shadowed bool) {
	_, shadowed = s.members[def.Member]
	if !shadowed {
		s.order = append(s.order, def.Member)
	}
	s.members[def.Member] = def
	return shadowed
}

// Has reports whether the member is declared.
func (s *SetTable) Has(member string) bool {
	_, ok := s.members[member]
	return ok
}

// Get returns the member's definition.
func (s *SetTable) Get(member string) (SetDefinition, bool) {
	d, ok := s.members[member]
	return d, ok
}

// Len returns the number of declared members.
func (s *SetTable) Len() int { return len(s.order) }

// Members returns all definitions in first-seen order.
func (s *SetTable) Members() []SetDefinition {
	out := make([]SetDefinition, 0, len(s.order))
	for _, m := range s.order {
		out = append(out, s.members[m])
	}
	return out
}

// MemberNames returns all member names in first-seen order.
func (s *SetTable) MemberNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// MatchAttr returns the names of members that carry the given value in
// any attribute, in first-seen order. This is how group tokens (a season,
// a time-slice level, a commodity group) expand to concrete members.
func (s *SetTable) MatchAttr(value string) []string {
	var out []string
	for _, m := range s.order {
		for _, v := range s.members[m].Attrs {
			if v == value {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
