package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector_WarnAndFatal(t *testing.T) {
	var c Collector
	c.Warnf("normalize", "~FI_T base.xlsx!Sheet1", "missing mandatory column %q", "Value")
	assert.False(t, c.HasFatal())

	c.Fatalf("validate", "NCAP_COST EU.ECOAL.2020", "region %q is not a declared member of REG", "EU")
	assert.True(t, c.HasFatal())

	assert.Len(t, c.All(), 2)
	assert.Len(t, c.Warnings(), 1)
	assert.Len(t, c.Fatals(), 1)
	assert.Equal(t, SeverityWarning, c.All()[0].Severity)
	assert.Equal(t, "normalize", c.All()[0].Stage)
}

func TestCollector_Extend(t *testing.T) {
	var a, b Collector
	a.Warnf("dispatch", "", "unrecognized tag ~BOGUS")
	b.Fatalf("validate", "k", "dangling reference")

	a.Extend(&b)
	assert.Len(t, a.All(), 2)
	assert.True(t, a.HasFatal())

	// Order preserved: a's entries first.
	assert.Equal(t, "dispatch", a.All()[0].Stage)
	assert.Equal(t, "validate", a.All()[1].Stage)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Severity: SeverityWarning, Stage: "expand", Key: "AF EU.*", Message: "no members"}
	assert.Equal(t, "warning [expand] AF EU.*: no members", d.String())

	d.Key = ""
	assert.Equal(t, "warning [expand]: no members", d.String())
}
