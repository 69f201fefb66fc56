// Package config provides configuration management for the xl2dd CLI.
package config

import "github.com/gridcraft/xl2dd/internal/emit"

// Config holds all CLI configuration options.
type Config struct {
	// InputDir holds the source workbooks.
	InputDir string `koanf:"input_dir"`
	// Workbooks is the explicit workbook load order; later workbooks
	// override earlier ones. Empty means every .xlsx in InputDir.
	Workbooks []string `koanf:"workbooks"`
	// Regions restricts the run to the named regions.
	Regions []string `koanf:"regions"`
	// WorkbookRegions maps workbook file names onto a declared region
	// hint applied to all their tables.
	WorkbookRegions map[string]string `koanf:"workbook_regions"`
	// OutDir receives the emitted .dd files.
	OutDir string `koanf:"out_dir"`
	// StatePath is the run-history database.
	StatePath string `koanf:"state_path"`
	// DefaultsFile overrides the built-in attribute rules.
	DefaultsFile string `koanf:"defaults_file"`
	// Groups selects which sets and parameters each output file carries.
	Groups []emit.Group `koanf:"groups"`
	// Workers bounds parallel table normalization.
	Workers int  `koanf:"workers"`
	Verbose bool `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultInputDir  = "workbooks"
	DefaultOutDir    = "dd"
	DefaultStateFile = ".xl2dd/state.db"
)
