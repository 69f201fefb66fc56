// Package state persists run history: one row per conversion run plus
// its diagnostics. The store is an audit aid; pipeline correctness never
// depends on it.
package state

import "time"

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded conversion run.
type Run struct {
	ID          string
	Command     string
	Status      RunStatus
	Workbooks   int
	Tables      int
	Facts       int
	Warnings    int
	Fatals      int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// RunDiagnostic is one diagnostic persisted for a run.
type RunDiagnostic struct {
	RunID    string
	Severity string
	Stage    string
	Key      string
	Message  string
}

// RunCounts summarizes a finished run.
type RunCounts struct {
	Workbooks int
	Tables    int
	Facts     int
	Warnings  int
	Fatals    int
}

// Store records runs and their diagnostics.
type Store interface {
	CreateRun(command string) (*Run, error)
	CompleteRun(id string, status RunStatus, counts RunCounts, errMsg string) error
	SaveDiagnostics(runID string, diags []RunDiagnostic) error
	ListRuns(limit int) ([]*Run, error)
	Close() error
}
