package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking.
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// GetCurrentConfig returns the most recently loaded config, or nil when
// none was loaded yet.
func GetCurrentConfig() *Config {
	return currentConfig
}

// configExistsIn checks if an xl2dd config file exists in the directory.
func configExistsIn(dir string) string {
	for _, name := range []string{"xl2dd.yaml", "xl2dd.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile finds the config file to use.
// Priority: explicit path > xl2dd.yaml upward from CWD.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// GetConfigFileUsed returns the path of the config file that was loaded,
// or "" when only defaults, env vars and flags applied.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file
// > defaults. Relative paths in the config file resolve against the
// file's directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"input_dir":  DefaultInputDir,
		"out_dir":    DefaultOutDir,
		"state_path": DefaultStateFile,
		"verbose":    false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (XL2DD_ prefix)
	// Transform: XL2DD_INPUT_DIR -> input_dir
	if err := k.Load(env.Provider("XL2DD_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "XL2DD_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// Short flag names map onto their config keys.
			switch key {
			case "out":
				key = "out_dir"
			case "state":
				key = "state_path"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Paths from the config file are relative to it, not to CWD.
	if configFileUsed != "" {
		base := filepath.Dir(configFileUsed)
		cfg.InputDir = resolvePathRelativeTo(cfg.InputDir, base, flags, "input-dir")
		cfg.OutDir = resolvePathRelativeTo(cfg.OutDir, base, flags, "out")
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, base, flags, "state")
		cfg.DefaultsFile = resolvePathRelativeTo(cfg.DefaultsFile, base, flags, "defaults-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig = cfg
	return cfg, nil
}

// resolvePathRelativeTo resolves path against baseDir unless it is
// absolute, empty, or was explicitly supplied as a flag (flag paths are
// relative to CWD).
func resolvePathRelativeTo(path, baseDir string, flags *pflag.FlagSet, flagName string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if flags != nil && flags.Changed(flagName) {
		return path
	}
	return filepath.Join(baseDir, path)
}
