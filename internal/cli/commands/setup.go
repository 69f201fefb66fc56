package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridcraft/xl2dd/internal/cli/config"
	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/extract"
	"github.com/gridcraft/xl2dd/internal/pipeline"
	"github.com/gridcraft/xl2dd/internal/state"
)

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back
// to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		InputDir:  getEnvOrDefault("XL2DD_INPUT_DIR", config.DefaultInputDir),
		OutDir:    getEnvOrDefault("XL2DD_OUT_DIR", config.DefaultOutDir),
		StatePath: getEnvOrDefault("XL2DD_STATE_PATH", config.DefaultStateFile),
		Verbose:   os.Getenv("XL2DD_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// openStore opens (and initializes) the run-history store.
func openStore(cfg *config.Config) (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// runPipeline executes the conversion pipeline with the configured
// options and records the run in the state store. Recording failures
// are reported but never fail the conversion.
func runPipeline(ctx context.Context, cfg *config.Config, command string) (*pipeline.Result, error) {
	rules, err := pipeline.LoadRules(cfg.DefaultsFile)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	run, err := store.CreateRun(command)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Run(ctx, pipeline.Options{
		InputDir:  cfg.InputDir,
		Workbooks: cfg.Workbooks,
		Regions:   cfg.Regions,
		Rules:     rules,
		Extractor: &extract.XLSX{RegionHints: cfg.WorkbookRegions},
		Workers:   cfg.Workers,
		Logger:    config.GetLogger(ctx),
	})
	if err != nil {
		_ = store.CompleteRun(run.ID, state.RunStatusFailed, state.RunCounts{}, err.Error())
		return nil, err
	}

	status := state.RunStatusCompleted
	errMsg := ""
	if res.Diags.HasFatal() {
		status = state.RunStatusFailed
		errMsg = fmt.Sprintf("%d fatal diagnostics", len(res.Diags.Fatals()))
	}
	counts := state.RunCounts{
		Workbooks: res.Stats.Workbooks,
		Tables:    res.Stats.Tables,
		Facts:     res.Stats.Facts,
		Warnings:  len(res.Diags.Warnings()),
		Fatals:    len(res.Diags.Fatals()),
	}
	if err := store.CompleteRun(run.ID, status, counts, errMsg); err != nil {
		config.GetLogger(ctx).Warn("failed to record run", "error", err)
	}
	if err := store.SaveDiagnostics(run.ID, toRunDiagnostics(run.ID, res.Diags.All())); err != nil {
		config.GetLogger(ctx).Warn("failed to record diagnostics", "error", err)
	}
	return res, nil
}

func toRunDiagnostics(runID string, diags []diag.Diagnostic) []state.RunDiagnostic {
	out := make([]state.RunDiagnostic, len(diags))
	for i, d := range diags {
		out[i] = state.RunDiagnostic{
			RunID:    runID,
			Severity: string(d.Severity),
			Stage:    d.Stage,
			Key:      d.Key,
			Message:  d.Message,
		}
	}
	return out
}

// summarize shortens a diagnostic list for run errors.
func summarize(diags []diag.Diagnostic, max int) string {
	var b strings.Builder
	for i, d := range diags {
		if i == max {
			fmt.Fprintf(&b, "... and %d more", len(diags)-max)
			break
		}
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	return b.String()
}
