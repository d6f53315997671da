// Package report holds the in-memory structures the host rendering
// engine consumes: general-statistics rows, detailed table sections,
// and plot definitions. Modules populate a Report during emission; the
// host turns it into HTML tables and plots.
package report

import (
	"sort"

	"github.com/cmgg/labqc/internal/qc"
)

// Header describes one table column. The visibility set is derived once
// from configuration at the start of a run and applied uniformly to
// every row; it never varies row to row.
type Header struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Suffix      string   `json:"suffix,omitempty"`
	Format      string   `json:"format,omitempty"`
	Scale       string   `json:"scale,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Hidden      bool     `json:"hidden,omitempty"`
}

// Table is one detailed table section: one row per sample or per
// (sample, panel).
type Table struct {
	ID       string
	Title    string
	Info     string
	Headers  []Header
	Rows     []*qc.AggregatedRow
	NoViolin bool
	SortRows bool
}

// PlotPoint is one bar of a plot series.
type PlotPoint struct {
	Sample qc.SampleKey `json:"sample"`
	Value  float64      `json:"value"`
}

// Plot is a plot-ready series: one value per sample, in discovery
// order unless the emitting module sorts explicitly.
type Plot struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	YLabel string      `json:"ylab,omitempty"`
	YMin   float64     `json:"ymin"`
	YMax   float64     `json:"ymax"`
	Series []PlotPoint `json:"series"`
}

// ShowHide configures the host's run-name show/hide buttons: one entry
// per run-name group, with a pass/fail color per group.
type ShowHide struct {
	Names  []string `json:"names"`
	Modes  []string `json:"modes"`
	Colors []string `json:"colors"`
}

// Report accumulates the contributions of every module for one run.
type Report struct {
	generalStats map[qc.SampleKey]*qc.AggregatedRow
	genStatsHead []Header
	headerSeen   map[string]bool

	Tables   []*Table
	Plots    []*Plot
	ShowHide *ShowHide
	Warnings []string

	// GeneralStatsNoViolin passes the host's violin-plot opt-out through
	// for the summary table (the custom_plot_config key).
	GeneralStatsNoViolin bool
}

// New returns an empty report.
func New() *Report {
	return &Report{
		generalStats: make(map[qc.SampleKey]*qc.AggregatedRow),
		headerSeen:   make(map[string]bool),
	}
}

// AddGeneralStats merges per-sample summary cells into the compact
// general statistics table. Headers are registered once per column ID;
// later registrations of the same ID are ignored.
func (r *Report) AddGeneralStats(rows map[qc.SampleKey]*qc.AggregatedRow, headers []Header) {
	for _, h := range headers {
		if r.headerSeen[h.ID] {
			continue
		}
		r.headerSeen[h.ID] = true
		r.genStatsHead = append(r.genStatsHead, h)
	}
	for sample, row := range rows {
		existing, ok := r.generalStats[sample]
		if !ok {
			r.generalStats[sample] = row
			continue
		}
		for _, name := range row.Order {
			existing.SetCell(name, row.Cells[name])
		}
	}
}

// GeneralStatsHeaders returns the registered summary columns in
// registration order.
func (r *Report) GeneralStatsHeaders() []Header {
	return r.genStatsHead
}

// GeneralStatsRows returns the summary rows sorted by sample key.
func (r *Report) GeneralStatsRows() []*qc.AggregatedRow {
	rows := make([]*qc.AggregatedRow, 0, len(r.generalStats))
	for _, row := range r.generalStats {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Sample < rows[j].Sample })
	return rows
}

// AddTable appends a detailed table section.
func (r *Report) AddTable(t *Table) {
	r.Tables = append(r.Tables, t)
}

// AddPlot appends a plot definition.
func (r *Report) AddPlot(p *Plot) {
	r.Plots = append(r.Plots, p)
}

// AddWarning records a surfaced configuration or parse warning so the
// generated report carries it visibly.
func (r *Report) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
