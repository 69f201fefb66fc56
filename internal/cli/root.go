// Package cli provides the command-line interface for xl2dd.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridcraft/xl2dd/internal/cli/commands"
	"github.com/gridcraft/xl2dd/internal/cli/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xl2dd",
		Short: "xl2dd - workbook to DD converter",
		Long: `xl2dd converts energy-model spreadsheet workbooks into GAMS-style
DD files.

Tagged tables are extracted from the workbooks, normalized into a
relational model, resolved against defaults, expanded and validated,
then written as SET and PARAMETER blocks. Later workbooks override
earlier ones.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			cmd.SetContext(config.WithLogger(ctx, logger))

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Workbook to DD converter
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./xl2dd.yaml)")
	rootCmd.PersistentFlags().String("input-dir", "", "Directory holding the source workbooks")
	rootCmd.PersistentFlags().StringSlice("workbooks", nil, "Explicit workbook load order (later overrides earlier)")
	rootCmd.PersistentFlags().StringSlice("regions", nil, "Restrict the run to these regions")
	rootCmd.PersistentFlags().String("out", "", "Output directory for .dd files")
	rootCmd.PersistentFlags().String("state", "", "Path to the run-history database")
	rootCmd.PersistentFlags().String("defaults-file", "", "Attribute rules file layered over the built-ins")
	rootCmd.PersistentFlags().Int("workers", 0, "Parallel normalization workers (0 = NumCPU)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewTablesCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		InputDir:  config.DefaultInputDir,
		OutDir:    config.DefaultOutDir,
		StatePath: config.DefaultStateFile,
	}
}
