package commands

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/state"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// renderDiagnostics writes the diagnostics report as a terminal table.
func renderDiagnostics(w io.Writer, diags []diag.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Stage", "Key", "Message"})
	for _, d := range diags {
		t.AppendRow(table.Row{d.Severity, d.Stage, d.Key, d.Message})
	}
	t.Render()
}

// renderRawTables lists extracted tables per workbook.
func renderRawTables(w io.Writer, raw []tables.RawTable) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Workbook", "Sheet", "Range", "Tag", "Rows"})
	for _, r := range raw {
		t.AppendRow(table.Row{r.Origin.Workbook, r.Origin.Sheet, r.Origin.Range, r.Tag, len(r.Rows)})
	}
	t.Render()
}

// renderRuns lists recorded runs, newest first.
func renderRuns(w io.Writer, runs []*state.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Command", "Status", "Workbooks", "Facts", "Warnings", "Started"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.ID), r.Command, r.Status,
			r.Workbooks, r.Facts, r.Warnings,
			r.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
