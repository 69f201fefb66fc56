package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/extract"
	"github.com/gridcraft/xl2dd/internal/model"
	"github.com/gridcraft/xl2dd/internal/tables"
)

// Options configures one conversion run.
type Options struct {
	// InputDir holds the workbooks. Ignored for workbook names given as
	// absolute paths.
	InputDir string
	// Workbooks is the explicit load order. Empty means every .xlsx in
	// InputDir, sorted by name. Order matters: later workbooks override
	// earlier ones.
	Workbooks []string
	// Regions restricts the run to the named regions. Empty means all
	// declared regions.
	Regions []string
	// Rules drives normalization and defaults. Nil loads the built-in
	// rule set.
	Rules *Rules
	// Extractor reads workbooks. Nil uses the XLSX extractor.
	Extractor extract.Extractor
	// Workers bounds parallel table normalization. Zero means NumCPU.
	Workers int
	// Logger receives progress output. Nil discards it.
	Logger *slog.Logger
}

// Stats summarizes a run for reporting and the run history store.
type Stats struct {
	Workbooks int
	Tables    int
	Facts     int
	Sets      int
}

// Result is the outcome of a run. When Diags.HasFatal() is true the
// model must not be emitted.
type Result struct {
	Model *model.Model
	Diags diag.Collector
	Stats Stats
}

// Run executes the full pipeline: extract, normalize (parallel per
// table, merged in source order), resolve defaults, expand wildcards,
// resolve the overlay and validate. Environment failures (missing
// files, unreadable workbooks) return an error; model-level problems
// become diagnostics on the result.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rules := opts.Rules
	if rules == nil {
		var err error
		if rules, err = LoadRules(""); err != nil {
			return nil, err
		}
	}
	extractor := opts.Extractor
	if extractor == nil {
		extractor = &extract.XLSX{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths, err := extract.ListWorkbooks(opts.InputDir, opts.Workbooks)
	if err != nil {
		return nil, err
	}

	raw, err := extractAll(ctx, extractor, paths, workers, logger)
	if err != nil {
		return nil, err
	}

	res := &Result{Model: model.New()}
	res.Stats.Workbooks = len(paths)
	res.Stats.Tables = len(raw)

	normalizeAll(ctx, raw, rules, workers, opts.Regions, res, logger)

	ResolveDefaults(res.Model, rules, &res.Diags)
	Expand(res.Model, &res.Diags)
	restrictRegions(res.Model, opts.Regions, logger)
	Validate(res.Model, rules, &res.Diags)

	res.Stats.Facts = len(res.Model.Facts)
	for _, name := range res.Model.SetNames() {
		res.Stats.Sets += res.Model.Set(name).Len()
	}

	logger.Info("pipeline finished",
		"workbooks", res.Stats.Workbooks,
		"tables", res.Stats.Tables,
		"facts", res.Stats.Facts,
		"warnings", len(res.Diags.Warnings()),
		"fatals", len(res.Diags.Fatals()))
	return res, nil
}

// extractAll reads the workbooks in parallel but returns their tables
// in workbook-list order, sheets and tables within each workbook in
// document order.
func extractAll(ctx context.Context, e extract.Extractor, paths []string, workers int, logger *slog.Logger) ([]tables.RawTable, error) {
	perBook := make([][]tables.RawTable, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			ts, err := e.Extract(gctx, path)
			if err != nil {
				return err
			}
			logger.Debug("extracted workbook", "workbook", filepath.Base(path), "tables", len(ts))
			perBook[i] = ts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting workbooks: %w", err)
	}

	var all []tables.RawTable
	for _, ts := range perBook {
		all = append(all, ts...)
	}
	return all, nil
}

// normalizeAll runs the per-table normalizers in parallel and merges
// the results into the model strictly in source order, so overlay
// precedence never depends on scheduling.
func normalizeAll(ctx context.Context, raw []tables.RawTable, rules *Rules, workers int, regions []string, res *Result, logger *slog.Logger) {
	results := make([]tableResult, len(raw))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range raw {
		g.Go(func() error {
			results[i] = normalizeTable(t, rules)
			return nil
		})
	}
	// Normalizers are pure and never return errors.
	_ = g.Wait()

	allowed := regionSet(regions)
	for i, r := range results {
		res.Diags.Extend(&r.diags)
		for _, def := range r.sets {
			if def.Set == "REG" && allowed != nil && !allowed[def.Member] {
				logger.Debug("region excluded by restriction", "region", def.Member)
				continue
			}
			res.Model.Declare(def)
		}
		if r.defaultYear != "" {
			res.Model.DefaultYear = r.defaultYear
		}
		res.Model.Append(r.facts...)
		logger.Debug("normalized table", "table", raw[i].Ref(),
			"sets", len(r.sets), "facts", len(r.facts))
	}
}

// restrictRegions drops expanded facts outside the requested regions.
// The REG set was already filtered at declaration time, so ALL only
// expanded to allowed regions; this catches rows with an explicit
// out-of-scope region.
func restrictRegions(m *model.Model, regions []string, logger *slog.Logger) {
	allowed := regionSet(regions)
	if allowed == nil {
		return
	}
	kept := m.Log[:0]
	for _, f := range m.Log {
		if f.Key.Region != "" && !allowed[f.Key.Region] {
			logger.Debug("fact excluded by region restriction", "key", f.Key.String())
			continue
		}
		kept = append(kept, f)
	}
	m.Log = kept
}

func regionSet(regions []string) map[string]bool {
	if len(regions) == 0 {
		return nil
	}
	out := make(map[string]bool, len(regions))
	for _, r := range regions {
		out[r] = true
	}
	return out
}
