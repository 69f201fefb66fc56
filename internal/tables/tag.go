// Package tables defines the tagged-table vocabulary shared by the
// extractor and the pipeline: the closed set of recognized tags, the
// table kinds they classify into, and the raw table shape produced by
// extraction.
package tables

import "strings"

// Tag marks what kind of table a block of spreadsheet cells represents.
// Tags appear in the workbook as a cell starting with '~'.
type Tag string

// The closed set of accepted tags. Adding a table type means adding a
// constant here and a case to Kind and mandatoryColumns, which the
// compiler checks exhaustively.
const (
	TagRegions        Tag = "~REGIONS"
	TagTimeSlices     Tag = "~TIMESLICES"
	TagMilestoneYears Tag = "~MILESTONEYEARS"
	TagDefaultYear    Tag = "~DEFAULTYEAR"
	TagCommodities    Tag = "~FI_COMM"
	TagProcesses      Tag = "~FI_PROCESS"
	TagTopology       Tag = "~TOPOLOGY"
	TagParameters     Tag = "~FI_T"
	TagScenario       Tag = "~TFM_INS"
)

// TableKind is the closed classification of a tagged table.
type TableKind int

const (
	KindUnknown TableKind = iota
	// KindSet declares members of a named set (regions, time slices,
	// years, commodities, processes).
	KindSet
	// KindMapping declares structural links between set members
	// (process/commodity topology).
	KindMapping
	// KindParameter carries base-model parameter facts.
	KindParameter
	// KindScenario carries scenario-overlay parameter facts that
	// override or augment base facts loaded earlier.
	KindScenario
)

func (k TableKind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindMapping:
		return "mapping"
	case KindParameter:
		return "parameter"
	case KindScenario:
		return "scenario"
	default:
		return "unknown"
	}
}

// ParseTag normalizes a marker cell into a Tag. It returns false when the
// cell is not a recognized tag. Matching is case-insensitive and ignores
// anything after a colon (workbooks may write "~FI_T: description").
func ParseTag(cell string) (Tag, bool) {
	s := strings.TrimSpace(cell)
	if !strings.HasPrefix(s, "~") {
		return "", false
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	tag := Tag(strings.ToUpper(strings.TrimSpace(s)))
	if tag.Kind() == KindUnknown {
		return tag, false
	}
	return tag, true
}

// Kind returns the table kind a tag classifies into.
func (t Tag) Kind() TableKind {
	switch t {
	case TagRegions, TagTimeSlices, TagMilestoneYears, TagDefaultYear,
		TagCommodities, TagProcesses:
		return KindSet
	case TagTopology:
		return KindMapping
	case TagParameters:
		return KindParameter
	case TagScenario:
		return KindScenario
	default:
		return KindUnknown
	}
}

// SetName returns the output set a set-definition tag declares members of.
// It returns "" for non-set tags.
func (t Tag) SetName() string {
	switch t {
	case TagRegions:
		return "REG"
	case TagTimeSlices:
		return "TS"
	case TagMilestoneYears, TagDefaultYear:
		return "YEAR"
	case TagCommodities:
		return "COM"
	case TagProcesses:
		return "PRC"
	default:
		return ""
	}
}
