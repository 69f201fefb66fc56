package config

import "fmt"

// Validate checks the loaded configuration for contradictions before
// any command runs with it.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir must not be empty")
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir must not be empty")
	}
	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("output group without a name")
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate output group %q", g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}
