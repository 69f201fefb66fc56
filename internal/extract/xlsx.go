package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gridcraft/xl2dd/internal/tables"
)

// XLSX reads tagged tables out of .xlsx workbooks with excelize.
//
// A table starts at any cell whose value begins with '~' (the tag
// marker). The header is the row directly below the marker, extending
// right until the first empty cell; data rows follow until a fully
// empty row. Comment rows (first cell starting with '*' or '\I:') are
// skipped without ending the table.
type XLSX struct {
	// RegionHints maps workbook base names onto a declared region,
	// applied to every table of that workbook as its origin hint.
	RegionHints map[string]string
}

var _ Extractor = (*XLSX)(nil)

func (x *XLSX) Extract(ctx context.Context, path string) ([]tables.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	workbook := filepath.Base(path)
	var out []tables.RawTable

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s!%s: %w", workbook, sheet, err)
		}
		for r, row := range rows {
			for c, cell := range row {
				if !strings.HasPrefix(strings.TrimSpace(cell), "~") {
					continue
				}
				t := cutTable(rows, r, c)
				t.Origin.Workbook = workbook
				t.Origin.Sheet = sheet
				t.Origin.RegionHint = x.RegionHints[workbook]
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// cutTable slices the header+data block marked by the tag cell at
// (row, col) out of the sheet grid.
func cutTable(rows [][]string, row, col int) tables.RawTable {
	t := tables.RawTable{}
	if tag, ok := tables.ParseTag(rows[row][col]); ok {
		t.Tag = tag
	} else {
		// Keep the unrecognized marker verbatim so dispatch can name
		// it in the diagnostic.
		t.Tag = tables.Tag(strings.TrimSpace(rows[row][col]))
	}

	headerRow := row + 1
	if headerRow >= len(rows) {
		return t
	}

	width := 0
	for c := col; c < len(rows[headerRow]); c++ {
		if strings.TrimSpace(rows[headerRow][c]) == "" {
			break
		}
		width++
	}
	t.Header = tables.NormalizeHeader(cellRange(rows[headerRow], col, width))

	last := headerRow
	for r := headerRow + 1; r < len(rows); r++ {
		cells := cellRange(rows[r], col, width)
		if blankRow(cells) {
			break
		}
		last = r
		if isComment(cells[0]) {
			continue
		}
		t.Rows = append(t.Rows, cells)
	}

	t.Origin.Range = fmt.Sprintf("%s:%s", cellName(col, headerRow), cellName(col+width-1, last))
	return t
}

func cellRange(row []string, col, width int) []string {
	out := make([]string, width)
	for i := 0; i < width; i++ {
		if col+i < len(row) {
			out[i] = row[col+i]
		}
	}
	return out
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isComment(cell string) bool {
	s := strings.TrimSpace(cell)
	return strings.HasPrefix(s, "*") || strings.HasPrefix(s, `\I:`)
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return ""
	}
	return name
}
