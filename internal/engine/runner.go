// Package engine drives the QC pipeline: for each active module it
// discovers input files, parses them, joins the complete record set,
// aggregates and classifies, and emits into the shared report.
package engine

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/discovery"
	"github.com/cmgg/labqc/internal/log"
	"github.com/cmgg/labqc/internal/module"
	"github.com/cmgg/labqc/internal/qc"
	"github.com/cmgg/labqc/internal/report"
)

// Runner drives one report-generation run over a fixed working set of
// input files. Modules run independently; a failure in one scopes to
// that module only.
type Runner struct {
	Config  *config.Config
	Modules []module.Module
	Log     *log.Logger

	// Workers bounds concurrent per-file parses. Zero or one means
	// sequential parsing.
	Workers int
}

// Result holds the output of a run.
type Result struct {
	Report *report.Report

	// Errors are per-file and per-module failures. The run itself
	// never aborts on them.
	Errors []error
}

// Run executes every active module over the input working set and
// returns the populated report. The report is deterministic for a
// fixed input set and configuration.
func (r *Runner) Run(inputs []string) *Result {
	res := &Result{Report: report.New()}

	opts := discovery.Options{
		IgnoreGlobs: r.Config.SampleNamesIgnore,
		ExtraTrim:   r.Config.ExtraFnCleanTrim,
	}

	// ExecutionStart already logged these; the report must carry
	// them visibly as well.
	for _, warning := range config.Validate(r.Config, moduleIDs(r.Modules)) {
		res.Report.AddWarning(warning)
	}
	res.Report.GeneralStatsNoViolin = r.Config.CustomPlots.GeneralStatsTable.NoViolin

	for _, mod := range r.Modules {
		if !r.Config.ModuleEnabled(mod.ID()) {
			r.Log.Printf("module %s disabled by run_modules", mod.ID())
			continue
		}
		r.runModule(mod, inputs, opts, res)
	}
	return res
}

// runModule executes one module's pipeline stage by stage.
func (r *Runner) runModule(mod module.Module, inputs []string, opts discovery.Options, res *Result) {
	hits := discovery.Scan(inputs, mod.Patterns(), opts)
	if len(hits) == 0 {
		r.Log.Printf("module %s: no input files", mod.ID())
		return
	}

	records, parseErrs := r.parseAll(mod, hits)
	for _, err := range parseErrs {
		// A malformed file excludes that file only; siblings render.
		r.Log.Warnf("module %s: %v", mod.ID(), err)
		res.Errors = append(res.Errors, err)
	}

	agg, err := mod.Aggregate(r.Config, records)
	if err != nil {
		switch {
		case errors.Is(err, module.ErrNoSamples):
			r.Log.Printf("module %s: no samples after parsing", mod.ID())
		case errors.Is(err, module.ErrMissingConfig):
			r.Log.Warnf("module %s skipped: %v", mod.ID(), err)
			res.Errors = append(res.Errors, fmt.Errorf("module %s: %w", mod.ID(), err))
		default:
			r.Log.Warnf("module %s failed: %v", mod.ID(), err)
			res.Errors = append(res.Errors, fmt.Errorf("module %s: %w", mod.ID(), err))
		}
		return
	}

	samples := make(map[qc.SampleKey]bool)
	for _, rec := range records {
		samples[rec.Sample] = true
	}
	r.Log.Printf("module %s: found reports for %d samples", mod.ID(), len(samples))

	for _, info := range agg.Infos {
		r.Log.Printf("module %s: %s", mod.ID(), info)
	}
	for _, warning := range agg.Warnings {
		r.Log.Warnf("module %s: %s", mod.ID(), warning)
		res.Report.AddWarning(fmt.Sprintf("%s: %s", mod.ID(), warning))
	}

	mod.Emit(agg, res.Report)
}

// parseAll parses every discovered file, in parallel when Workers
// allows it. Parse failures are collected per file and never cancel
// sibling parses; the caller only sees records once every parse has
// completed, so aggregation always works from a complete input set.
func (r *Runner) parseAll(mod module.Module, hits []discovery.Hit) ([]*qc.MetricRecord, []error) {
	type parsed struct {
		records []*qc.MetricRecord
		err     error
	}

	// Each goroutine writes only its own slot.
	results := make([]parsed, len(hits))

	var g errgroup.Group
	limit := r.Workers
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			data, err := os.ReadFile(hit.Path)
			var recs []*qc.MetricRecord
			if err == nil {
				recs, err = mod.Parse(hit, data)
			}
			if err != nil {
				err = fmt.Errorf("parsing %q: %w", hit.Path, err)
			}
			results[i] = parsed{records: recs, err: err}
			return nil
		})
	}
	// Join point: merge only starts on a complete, consistent set.
	_ = g.Wait()

	var records []*qc.MetricRecord
	var errs []error
	for _, p := range results {
		if p.err != nil {
			errs = append(errs, p.err)
			continue
		}
		records = append(records, p.records...)
	}
	return records, errs
}

// moduleIDs lists the IDs of the given modules, sorted.
func moduleIDs(mods []module.Module) []string {
	ids := make([]string, 0, len(mods))
	for _, m := range mods {
		ids = append(ids, m.ID())
	}
	sort.Strings(ids)
	return ids
}
