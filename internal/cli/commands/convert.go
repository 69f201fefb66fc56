package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridcraft/xl2dd/internal/emit"
)

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert",
		Short: "Convert workbooks into DD files",
		Long: `Run the full conversion pipeline and write the resulting DD files.

Workbooks load in configured order; later workbooks override earlier
entries with the same key. Warnings are reported on stderr. Any fatal
diagnostic aborts the run before emission: no partial output is
written and the command exits non-zero.`,
		Example: `  # Convert everything under the configured input directory
  xl2dd convert

  # Explicit workbook order with a region restriction
  xl2dd convert --workbooks base.xlsx,scenario.xlsx --regions EU,NA --out dd/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()

			res, err := runPipeline(cmd.Context(), cfg, "convert")
			if err != nil {
				return err
			}

			renderDiagnostics(cmd.ErrOrStderr(), res.Diags.All())
			if res.Diags.HasFatal() {
				return fmt.Errorf("aborted before emission:\n%s", summarize(res.Diags.Fatals(), 10))
			}

			if err := emit.Write(cfg.OutDir, res.Model, cfg.Groups); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d facts from %d workbooks to %s\n",
				res.Stats.Facts, res.Stats.Workbooks, cfg.OutDir)
			return nil
		},
	}
}
