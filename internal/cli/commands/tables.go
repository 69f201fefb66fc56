package commands

import (
	"github.com/spf13/cobra"

	"github.com/gridcraft/xl2dd/internal/extract"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tagged tables found in the workbooks",
		Long: `Extract the workbooks and list every tagged table with its origin,
without running the rest of the pipeline. Useful to verify that tags
and table ranges are recognized before converting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()

			paths, err := extract.ListWorkbooks(cfg.InputDir, cfg.Workbooks)
			if err != nil {
				return err
			}

			x := &extract.XLSX{RegionHints: cfg.WorkbookRegions}
			var all []tables.RawTable
			for _, path := range paths {
				ts, err := x.Extract(cmd.Context(), path)
				if err != nil {
					return err
				}
				all = append(all, ts...)
			}
			renderRawTables(cmd.OutOrStdout(), all)
			return nil
		},
	}
}
