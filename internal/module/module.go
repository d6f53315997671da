// Package module defines the capability contract every QC module
// implements and the global registry the entrypoints register into.
package module

import (
	"errors"

	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/discovery"
	"github.com/cmgg/labqc/internal/qc"
	"github.com/cmgg/labqc/internal/report"
)

// ErrNoSamples signals that a module found no input files for this
// run. The module simply contributes nothing to the report.
var ErrNoSamples = errors.New("no samples found")

// ErrMissingConfig signals that a required configuration parameter for
// an active module is wholly absent. The module contributes no output;
// other modules are unaffected.
var ErrMissingConfig = errors.New("required configuration missing")

// Result is one module's aggregated contribution, handed from
// Aggregate to Emit. Fields a module does not produce stay nil.
type Result struct {
	// GeneralStats holds compact per-sample summary cells and their
	// column headers.
	GeneralStats        map[qc.SampleKey]*qc.AggregatedRow
	GeneralStatsHeaders []report.Header

	// Tables holds the module's detailed table sections.
	Tables []*report.Table

	// Plots holds plot-ready series.
	Plots []*report.Plot

	// ShowHide configures the host's run-name show/hide buttons.
	ShowHide *report.ShowHide

	// Warnings are surfaced in the report and the log.
	Warnings []string

	// Infos are logged informationally and never surfaced in the
	// report, e.g. configured thresholds no input ever reached.
	Infos []string
}

// Module is a single QC module: a pattern table for discovery, a
// parser per file kind, a cross-sample aggregation step, and an
// emission step that populates the host report structures. Modules
// hold no per-run state; configuration is passed in explicitly.
type Module interface {
	// ID is the stable identifier used in run_modules.
	ID() string

	// Name is the human-readable module title.
	Name() string

	// Info is a one-line description shown in the report.
	Info() string

	// Patterns returns the ordered (pattern, kind) dispatch table.
	Patterns() []discovery.Pattern

	// Parse converts one recognized file's contents into metric
	// records. A parse failure fails that file only.
	Parse(hit discovery.Hit, data []byte) ([]*qc.MetricRecord, error)

	// Aggregate merges the complete record set for this run and
	// classifies values. Returns ErrNoSamples when records is empty
	// and ErrMissingConfig when a required parameter is absent.
	Aggregate(cfg *config.Config, records []*qc.MetricRecord) (*Result, error)

	// Emit hands the aggregated result to the report.
	Emit(res *Result, rep *report.Report)
}

var registry []Module

// Register adds a module to the global registry.
func Register(m Module) {
	registry = append(registry, m)
}

// All returns a copy of all registered modules.
func All() []Module {
	result := make([]Module, len(registry))
	copy(result, registry)
	return result
}

// ByID returns the registered module with the given ID, or nil.
func ByID(id string) Module {
	for _, m := range registry {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// Reset clears the registry. Used for testing.
func Reset() {
	registry = nil
}
