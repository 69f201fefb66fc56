package tables

import (
	"fmt"
	"strings"
)

// mandatoryColumns lists the canonical columns a table must carry for its
// tag, after header normalization. A table missing any of them is
// malformed and dropped with a diagnostic.
var mandatoryColumns = map[Tag][]string{
	TagRegions:        {ColRegion},
	TagTimeSlices:     {ColTimeSlice},
	TagMilestoneYears: {ColYear},
	TagDefaultYear:    {ColYear},
	TagCommodities:    {ColCommodity},
	TagProcesses:      {ColProcess},
	TagTopology:       {ColProcess, ColCommodity, ColIO},
	TagParameters:     {ColAttribute, ColValue},
	TagScenario:       {ColAttribute, ColValue},
}

// Classify determines the table kind for a raw table. It is deterministic
// and stateless: the tag decides the kind, and structural hints break the
// one ambiguity in the vocabulary (a ~FI_T block authored inside a
// scenario workbook is treated as a scenario table when its header carries
// no Region column but the workbook declares a region hint, matching how
// scenario files scope their rows).
//
// It returns an error describing why the table must be dropped; the error
// is reported as a warning diagnostic, never a run failure.
func Classify(t RawTable) (TableKind, error) {
	kind := t.Tag.Kind()
	if kind == KindUnknown {
		return KindUnknown, fmt.Errorf("unrecognized tag %q", t.Tag)
	}

	missing := missingColumns(t)
	if len(missing) > 0 {
		return KindUnknown, fmt.Errorf("%s table is missing mandatory column(s) %s",
			kind, strings.Join(missing, ", "))
	}

	if kind == KindParameter && t.Column(ColRegion) < 0 && t.Origin.RegionHint != "" {
		return KindScenario, nil
	}
	return kind, nil
}

func missingColumns(t RawTable) []string {
	var missing []string
	for _, col := range mandatoryColumns[t.Tag] {
		if t.Column(col) < 0 {
			missing = append(missing, col)
		}
	}
	return missing
}
