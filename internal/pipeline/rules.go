package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/gridcraft/xl2dd/internal/model"
)

//go:embed defaults.yaml
var builtinRules []byte

// AttrRule describes how one input attribute maps onto an output
// parameter: the dimensions it is indexed by, whether values arrive as
// percentages, and the attribute-level default time slice.
type AttrRule struct {
	Dims      []string `yaml:"dims"`
	Percent   bool     `yaml:"percent"`
	TimeSlice string   `yaml:"timeslice"`
}

// Requires reports whether the rule indexes the given dimension.
func (r AttrRule) Requires(d model.Dimension) bool {
	for _, name := range r.Dims {
		if name == string(d) {
			return true
		}
	}
	return false
}

// GlobalRule holds run-wide fallbacks applied when neither the row, a
// scenario default, nor the attribute rule supplies a value.
type GlobalRule struct {
	TimeSlice string `yaml:"timeslice"`
}

// Rules is the full attribute rule set driving normalization and
// defaults resolution. Attribute names are upper-cased on load so
// lookups are case-insensitive.
type Rules struct {
	Global     GlobalRule          `yaml:"global"`
	Attributes map[string]AttrRule `yaml:"attributes"`
}

// Lookup finds the rule for an attribute, case-insensitively.
func (r *Rules) Lookup(attr string) (AttrRule, bool) {
	rule, ok := r.Attributes[strings.ToUpper(attr)]
	return rule, ok
}

// LoadRules parses the built-in rule set and, when path is non-empty,
// merges a user rule file over it. User entries override per attribute;
// attributes the user file does not mention keep their built-in rule.
func LoadRules(path string) (*Rules, error) {
	base, err := parseRules(builtinRules)
	if err != nil {
		return nil, fmt.Errorf("built-in rules: %w", err)
	}
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	user, err := parseRules(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	if err := mergo.Merge(base, user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging rules %s: %w", path, err)
	}
	return base, nil
}

func parseRules(raw []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	upper := make(map[string]AttrRule, len(r.Attributes))
	for name, rule := range r.Attributes {
		for _, d := range rule.Dims {
			if !knownDimension(d) {
				return nil, fmt.Errorf("attribute %s: unknown dimension %q", name, d)
			}
		}
		upper[strings.ToUpper(name)] = rule
	}
	r.Attributes = upper
	return &r, nil
}

func knownDimension(name string) bool {
	for _, d := range model.Dimensions {
		if string(d) == name {
			return true
		}
	}
	return false
}
