package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gridcraft/xl2dd/internal/tables"
)

// Dimension names one axis of a fact key.
type Dimension string

const (
	DimRegion    Dimension = "region"
	DimProcess   Dimension = "process"
	DimCommodity Dimension = "commodity"
	DimTimeSlice Dimension = "timeslice"
	DimYear      Dimension = "year"
)

// Dimensions lists the fact dimensions in canonical tuple order.
var Dimensions = []Dimension{DimRegion, DimProcess, DimCommodity, DimTimeSlice, DimYear}

// SetName returns the set a dimension's values must belong to.
func (d Dimension) SetName() string {
	switch d {
	case DimRegion:
		return "REG"
	case DimProcess:
		return "PRC"
	case DimCommodity:
		return "COM"
	case DimTimeSlice:
		return "TS"
	case DimYear:
		return "YEAR"
	default:
		return ""
	}
}

// Key is the dimension tuple of a fact. Param is the output parameter
// (attribute) name; the remaining fields are empty for dimensions the
// parameter is not indexed by.
type Key struct {
	Param     string
	Region    string
	Process   string
	Commodity string
	TimeSlice string
	Year      string
}

// Dim returns the value of the named dimension.
func (k Key) Dim(d Dimension) string {
	switch d {
	case DimRegion:
		return k.Region
	case DimProcess:
		return k.Process
	case DimCommodity:
		return k.Commodity
	case DimTimeSlice:
		return k.TimeSlice
	case DimYear:
		return k.Year
	default:
		return ""
	}
}

// WithDim returns a copy of the key with the named dimension replaced.
func (k Key) WithDim(d Dimension, v string) Key {
	switch d {
	case DimRegion:
		k.Region = v
	case DimProcess:
		k.Process = v
	case DimCommodity:
		k.Commodity = v
	case DimTimeSlice:
		k.TimeSlice = v
	case DimYear:
		k.Year = v
	}
	return k
}

// Tuple renders the non-empty dimensions as a dot-joined tuple for
// diagnostics and emission ordering.
func (k Key) Tuple() string {
	parts := make([]string, 0, 5)
	for _, d := range Dimensions {
		if v := k.Dim(d); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ".")
}

func (k Key) String() string {
	if t := k.Tuple(); t != "" {
		return k.Param + " " + t
	}
	return k.Param
}

// Source orders fact rows for overlay resolution: workbooks in load
// order, tables in sheet order, rows in table order. Seq is assigned
// globally increasing during the merge back into the model.
type Source struct {
	Workbook string
	Sheet    string
	Seq      int
}

func (s Source) String() string {
	return fmt.Sprintf("%s!%s#%d", s.Workbook, s.Sheet, s.Seq)
}

// FactRow is the canonical normalized unit. Kind plus Key forms the
// candidate key; collisions are resolved by source order, later wins.
type FactRow struct {
	Kind  tables.TableKind
	Key   Key
	Value float64
	// TSDefault is a scenario-declared default time slice applied when
	// Key.TimeSlice is empty. It outranks process-level and global
	// defaults.
	TSDefault string
	// RegionHint is the workbook-declared region applied when
	// Key.Region is empty. Explicit regions outrank it.
	RegionHint string
	Source     Source
}

var yearRangePattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

// IsWildcard reports whether a dimension value is a wildcard token
// pending expansion rather than (necessarily) a concrete member: the
// literal ALL/'*' token, or a year range for the year dimension. Group
// and set-name tokens can only be told apart from concrete members by
// set lookup, which the expander does.
func IsWildcard(d Dimension, v string) bool {
	if strings.EqualFold(v, "ALL") || v == "*" {
		return true
	}
	return d == DimYear && yearRangePattern.MatchString(v)
}
