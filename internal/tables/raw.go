package tables

import (
	"fmt"
	"strings"
)

// Origin records where a raw table was extracted from.
type Origin struct {
	// Workbook is the source file name (base name, not full path).
	Workbook string
	// Sheet is the worksheet the table was found on.
	Sheet string
	// Range is the cell range the table occupied, e.g. "B3:F12".
	Range string
	// RegionHint is an optional region declared for the whole workbook
	// or sheet; defaults resolution falls back to it for facts with no
	// explicit region.
	RegionHint string
}

// RawTable is a tagged table as cut out of a workbook: a header row and
// data rows of untyped strings. It is produced by the extractor, consumed
// by exactly one normalizer, and then discarded.
type RawTable struct {
	Tag    Tag
	Origin Origin
	Header []string
	Rows   [][]string
}

// Ref identifies the table in diagnostics.
func (t RawTable) Ref() string {
	return fmt.Sprintf("%s %s!%s", t.Tag, t.Origin.Workbook, t.Origin.Sheet)
}

// Canonical column names used by the normalizers. Workbook headers are
// folded onto these via columnAliases.
const (
	ColRegion    = "Region"
	ColProcess   = "Process"
	ColCommodity = "Commodity"
	ColTimeSlice = "TimeSlice"
	ColYear      = "Year"
	ColAttribute = "Attribute"
	ColValue     = "Value"
	ColIO        = "IO"
	ColSeason    = "Season"
	ColLevel     = "Level"
	ColGroup     = "Group"
	ColTSLevel   = "TSLvl"
)

// columnAliases maps lowercase header spellings seen in the wild onto
// canonical column names.
var columnAliases = map[string]string{
	"region":     ColRegion,
	"reg":        ColRegion,
	"process":    ColProcess,
	"techname":   ColProcess,
	"prc":        ColProcess,
	"commodity":  ColCommodity,
	"commname":   ColCommodity,
	"com":        ColCommodity,
	"timeslice":  ColTimeSlice,
	"ts":         ColTimeSlice,
	"year":       ColYear,
	"yr":         ColYear,
	"attribute":  ColAttribute,
	"attr":       ColAttribute,
	"value":      ColValue,
	"val":        ColValue,
	"io":         ColIO,
	"in/out":     ColIO,
	"season":     ColSeason,
	"level":      ColLevel,
	"tslvl":      ColTSLevel,
	"group":      ColGroup,
	"commgrp":    ColGroup,
	"membername": "Name",
	"name":       "Name",
}

// NormalizeHeader folds header cells onto canonical column names.
// Unknown headers are kept verbatim (trimmed); they become attribute
// columns on set-definition tables.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if canonical, ok := columnAliases[strings.ToLower(h)]; ok {
			out[i] = canonical
		} else {
			out[i] = h
		}
	}
	return out
}

// Column returns the index of the named canonical column, or -1.
func (t RawTable) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value of the named column in the given row,
// or "" when the column is absent or the row is short.
func (t RawTable) Cell(row []string, name string) string {
	i := t.Column(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
