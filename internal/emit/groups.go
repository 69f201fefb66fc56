package emit

// Group selects which sets and parameters go into one output file.
// Empty selectors mean everything; the zero group with just a name
// emits the whole model.
type Group struct {
	Name   string   `koanf:"name" yaml:"name"`
	Sets   []string `koanf:"sets" yaml:"sets"`
	Params []string `koanf:"params" yaml:"params"`
}

func (g Group) wantsSet(name string) bool {
	return contains(g.Sets, name)
}

func (g Group) wantsParam(name string) bool {
	return contains(g.Params, name)
}

func contains(selector []string, name string) bool {
	if len(selector) == 0 {
		return true
	}
	for _, s := range selector {
		if s == name {
			return true
		}
	}
	return false
}
