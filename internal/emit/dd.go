// Package emit serializes a resolved model into GAMS-style DD files.
package emit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gridcraft/xl2dd/internal/model"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// Write renders each output group into <name>.dd under dir. Files are
// byte-identical across runs over the same model: sets sort by name
// then member declaration order is replaced with lexicographic member
// order, parameters by name then dimension tuple.
func Write(dir string, m *model.Model, groups []Group) error {
	if len(groups) == 0 {
		groups = []Group{{Name: "base"}}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, g := range groups {
		path := filepath.Join(dir, g.Name+".dd")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		err = Render(f, m, g)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// Render writes one group's SET and PARAMETER blocks.
func Render(w io.Writer, m *model.Model, g Group) error {
	if err := renderSets(w, m, g); err != nil {
		return err
	}
	return renderParams(w, m, g)
}

func renderSets(w io.Writer, m *model.Model, g Group) error {
	// Topology mappings are emitted as tuple sets alongside the plain
	// member sets.
	mappings := map[string][]string{}
	for _, f := range m.SortedFacts() {
		if f.Kind != tables.KindMapping {
			continue
		}
		mappings[f.Key.Param] = append(mappings[f.Key.Param], quoteTuple(f.Key))
	}

	names := make([]string, 0, len(m.SetNames())+len(mappings))
	for _, n := range m.SetNames() {
		if g.wantsSet(n) && m.Set(n).Len() > 0 {
			names = append(names, n)
		}
	}
	for n := range mappings {
		if g.wantsSet(n) {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var members []string
		if tuples, ok := mappings[name]; ok {
			members = tuples
		} else {
			for _, member := range m.Set(name).MemberNames() {
				members = append(members, quote(member))
			}
			sort.Strings(members)
		}
		if err := writeBlock(w, "SET "+name, members); err != nil {
			return err
		}
	}
	return nil
}

func renderParams(w io.Writer, m *model.Model, g Group) error {
	lines := map[string][]string{}
	var names []string
	for _, f := range m.SortedFacts() {
		if f.Kind != tables.KindParameter || !g.wantsParam(f.Key.Param) {
			continue
		}
		if _, ok := lines[f.Key.Param]; !ok {
			names = append(names, f.Key.Param)
		}
		lines[f.Key.Param] = append(lines[f.Key.Param],
			quoteTuple(f.Key)+" "+formatValue(f.Value))
	}
	// SortedFacts already orders by param then tuple.

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "PARAMETER\n%s ' '/\n", name); err != nil {
			return err
		}
		for _, line := range lines[name] {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "/\n\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeBlock(w io.Writer, header string, members []string) error {
	if _, err := io.WriteString(w, header+"\n/\n"); err != nil {
		return err
	}
	for _, m := range members {
		if _, err := io.WriteString(w, m+"\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "/\n\n")
	return err
}

func quote(s string) string {
	return "'" + s + "'"
}

// quoteTuple renders the non-empty dimensions as 'a'.'b'.'c'.
func quoteTuple(k model.Key) string {
	parts := make([]string, 0, 5)
	for _, d := range model.Dimensions {
		if v := k.Dim(d); v != "" {
			parts = append(parts, quote(v))
		}
	}
	return strings.Join(parts, ".")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
