// Package diag provides the diagnostics collector threaded through the
// conversion pipeline. Stages report problems into a Collector value
// instead of logging globally, so runs stay composable and parallel
// tests do not interleave output.
package diag

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	// SeverityWarning marks a recoverable problem; the pipeline continues
	// with a reduced row set.
	SeverityWarning Severity = "warning"
	// SeverityFatal marks a problem that aborts the run before emission.
	SeverityFatal Severity = "fatal"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	// Stage is the pipeline stage that reported the problem
	// (extract, dispatch, normalize, defaults, expand, validate, emit).
	Stage string
	// Key identifies the offending table or fact key, when known.
	Key     string
	Message string
}

func (d Diagnostic) String() string {
	if d.Key == "" {
		return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Stage, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Stage, d.Key, d.Message)
}

// Collector accumulates diagnostics for one conversion run.
// The zero value is ready to use. A Collector is not safe for concurrent
// use; parallel stages collect into per-table collectors and merge them
// back in source order with Extend.
type Collector struct {
	diags  []Diagnostic
	fatals int
}

// Warnf records a warning diagnostic.
func (c *Collector) Warnf(stage, key, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{
		Severity: SeverityWarning,
		Stage:    stage,
		Key:      key,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Fatalf records a fatal diagnostic. The pipeline checks HasFatal after
// validation and aborts before emission when any are present.
func (c *Collector) Fatalf(stage, key, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{
		Severity: SeverityFatal,
		Stage:    stage,
		Key:      key,
		Message:  fmt.Sprintf(format, args...),
	})
	c.fatals++
}

// Extend appends all diagnostics from other, preserving their order.
func (c *Collector) Extend(other *Collector) {
	if other == nil {
		return
	}
	c.diags = append(c.diags, other.diags...)
	c.fatals += other.fatals
}

// HasFatal reports whether any fatal diagnostic was recorded.
func (c *Collector) HasFatal() bool { return c.fatals > 0 }

// All returns every recorded diagnostic in report order.
func (c *Collector) All() []Diagnostic { return c.diags }

// Fatals returns only the fatal diagnostics.
func (c *Collector) Fatals() []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Severity == SeverityFatal {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning diagnostics.
func (c *Collector) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int { return len(c.diags) }
