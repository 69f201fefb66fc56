package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the pipeline without writing output",
		Long: `Run the full conversion pipeline, report every diagnostic, and exit
non-zero when any fatal diagnostic is present. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()

			res, err := runPipeline(cmd.Context(), cfg, "check")
			if err != nil {
				return err
			}

			renderDiagnostics(cmd.OutOrStdout(), res.Diags.All())
			if res.Diags.HasFatal() {
				return fmt.Errorf("%d fatal diagnostics", len(res.Diags.Fatals()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d facts from %d workbooks, %d warnings\n",
				res.Stats.Facts, res.Stats.Workbooks, len(res.Diags.Warnings()))
			return nil
		},
	}
}
