// Package msisensor aggregates MSISensor-pro output: the per-sample
// instability summary and the per-locus results, with MSI-high
// flagging against the configured score threshold.
package msisensor

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/discovery"
	"github.com/cmgg/labqc/internal/module"
	"github.com/cmgg/labqc/internal/qc"
	"github.com/cmgg/labqc/internal/report"
	"github.com/cmgg/labqc/internal/threshold"
)

func init() {
	module.Register(&Module{})
}

// File kinds.
const (
	kindSummary = "summary"
	kindAll     = "all"
)

// locusColumns are the per-locus result columns, in file order.
var locusColumns = []string{
	"chromosome",
	"location",
	"left_flank_bases",
	"repeat_times",
	"repeat_unit_bases",
	"right_flank_bases",
	"pro_p",
	"pro_q",
	"coverage_reads",
	"threshold",
}

// Module implements the MSISensor-pro QC module.
type Module struct{}

// ID implements module.Module.
func (m *Module) ID() string { return "msisensor" }

// Name implements module.Module.
func (m *Module) Name() string { return "MSI Sensor Pro" }

// Info implements module.Module.
func (m *Module) Info() string {
	return "Microsatellite instability: percentage of unstable sites per sample with per-locus detail"
}

// Patterns implements module.Module.
func (m *Module) Patterns() []discovery.Pattern {
	return []discovery.Pattern{
		{
			Glob: "*_summary_msi*",
			Kind: kindSummary,
			Trim: []string{"_summary_msi.txt", "_summary_msi.tsv", "_summary_msi"},
		},
		{
			Glob: "*_all_msi*",
			Kind: kindAll,
			Trim: []string{"_all_msi.txt", "_all_msi.tsv", "_all_msi"},
		},
	}
}

// Parse dispatches on file kind.
func (m *Module) Parse(hit discovery.Hit, data []byte) ([]*qc.MetricRecord, error) {
	switch hit.Kind {
	case kindSummary:
		return parseSummary(hit, data)
	case kindAll:
		return parseLoci(hit, data)
	}
	return nil, fmt.Errorf("unknown file kind %q", hit.Kind)
}

// parseSummary reads the instability summary: a header line followed by
// one line of total sites, unstable sites, and percent unstable.
func parseSummary(hit discovery.Hit, data []byte) ([]*qc.MetricRecord, error) {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("expected a header and a value line, got %d lines", len(lines))
	}

	fields := strings.Split(lines[1], "\t")
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected 3 columns, got %d", len(fields))
	}
	numSites, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("bad site count %q", fields[0])
	}
	numUnstable, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("bad unstable site count %q", fields[1])
	}
	percent, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, fmt.Errorf("bad percentage %q", fields[2])
	}

	rec := qc.NewMetricRecord(hit.Sample)
	rec.Source = hit.Kind
	rec.Set("num_sites", qc.Number(float64(numSites)))
	rec.Set("num_unstable_sites", qc.Number(float64(numUnstable)))
	rec.Set("perc", qc.Number(percent))
	return []*qc.MetricRecord{rec}, nil
}

// parseLoci reads the per-locus results: ten tab-separated columns per
// row after the header. Short rows are skipped; they do not fail the
// file.
func parseLoci(hit discovery.Hit, data []byte) ([]*qc.MetricRecord, error) {
	var records []*qc.MetricRecord

	scanner := bufio.NewScanner(bytes.NewReader(data))
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < len(locusColumns) {
			continue
		}

		rec := qc.NewMetricRecord(hit.Sample)
		rec.Source = hit.Kind
		rec.Region = qc.RegionKey(parts[0] + ":" + parts[1])
		for i, name := range locusColumns {
			rec.Set(name, qc.ParseValue(parts[i]))
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Aggregate builds the per-sample summary table, the per-locus detail
// table filtered by the coverage threshold, and the MSI score plot
// series in discovery order.
func (m *Module) Aggregate(cfg *config.Config, records []*qc.MetricRecord) (*module.Result, error) {
	if len(records) == 0 {
		return nil, module.ErrNoSamples
	}

	msiHigh := 20.0
	if cfg.MSIHighThreshold != nil {
		msiHigh = *cfg.MSIHighThreshold
	}
	minSites := 20
	if cfg.MSISensorMinSites != nil {
		minSites = *cfg.MSISensorMinSites
	}
	covThreshold := 20.0
	if cfg.MSISensorCoverageThreshold != nil {
		covThreshold = *cfg.MSISensorCoverageThreshold
	}
	scoreBounds := threshold.PassFail(msiHigh, threshold.HigherIsWorse)

	var warnings []string

	// Summary rows and the score plot, both in discovery order.
	var summarySamples []qc.SampleKey
	summaries := make(map[qc.SampleKey]*qc.MetricRecord)
	for _, rec := range records {
		if rec.Source != kindSummary {
			continue
		}
		if _, ok := summaries[rec.Sample]; !ok {
			summarySamples = append(summarySamples, rec.Sample)
		}
		summaries[rec.Sample] = rec
	}
	if len(summarySamples) == 0 {
		return nil, module.ErrNoSamples
	}

	summaryTable := &report.Table{
		ID:      "msisensor_summary",
		Title:   m.Name(),
		Info:    m.Info(),
		Headers: summaryHeaders(),
	}
	plot := &report.Plot{
		ID:     "msisensor_score",
		Title:  "MSI Sensor Pro: unstable sites",
		YLabel: "Percentage of unstable sites",
		YMin:   0,
		YMax:   100,
	}
	for _, sample := range summarySamples {
		rec := summaries[sample]
		row, warn := summaryRow(rec, scoreBounds, minSites)
		summaryTable.Rows = append(summaryTable.Rows, row)
		warnings = append(warnings, warn...)
		if v, ok := rec.Get("perc"); ok && v.Numeric {
			plot.Series = append(plot.Series, report.PlotPoint{Sample: sample, Value: v.Num})
		}
	}

	res := &module.Result{
		Tables:   []*report.Table{summaryTable},
		Plots:    []*report.Plot{plot},
		Warnings: warnings,
	}

	if locusTable, dropped := lociTable(records, covThreshold); locusTable != nil {
		res.Tables = append(res.Tables, locusTable)
		if dropped > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%d loci below the %.0fx coverage threshold excluded from the per-locus table",
				dropped, covThreshold))
		}
	}
	return res, nil
}

// Emit implements module.Module.
func (m *Module) Emit(res *module.Result, rep *report.Report) {
	for _, t := range res.Tables {
		rep.AddTable(t)
	}
	for _, p := range res.Plots {
		rep.AddPlot(p)
	}
}

// summaryRow builds one sample's summary row. Samples with fewer
// evaluated sites than the configured minimum stay unclassified.
func summaryRow(rec *qc.MetricRecord, scoreBounds threshold.Bounds, minSites int) (*qc.AggregatedRow, []string) {
	row := qc.NewAggregatedRow(rec.Sample, "")
	var warnings []string

	sites, _ := rec.Get("num_sites")
	unstable, _ := rec.Get("num_unstable_sites")
	percent, _ := rec.Get("perc")

	row.SetCell("num_sites", qc.Cell{Value: sites})
	row.SetCell("num_unstable_sites", qc.Cell{Value: unstable})

	cell := qc.Cell{Value: percent}
	switch {
	case !percent.Numeric:
		cell.Status = qc.Undetermined
	case sites.Numeric && int(sites.Num) < minSites:
		cell.Status = qc.Undetermined
		warnings = append(warnings, fmt.Sprintf(
			"sample %s: only %d sites evaluated (minimum %d); MSI score left unclassified",
			rec.Sample, int(sites.Num), minSites))
	default:
		cell.Status = threshold.Classify(percent.Num, scoreBounds)
	}
	row.SetCell("perc", cell)
	return row, warnings
}

// lociTable builds the per-locus detail table, excluding loci whose
// read coverage falls below the configured threshold. Returns nil when
// no per-locus records exist at all.
func lociTable(records []*qc.MetricRecord, covThreshold float64) (*report.Table, int) {
	table := &report.Table{
		ID:      "msisensor_loci",
		Title:   "MSI Sensor Pro: loci",
		Info:    "Per-locus microsatellite results",
		Headers: lociHeaders(),
	}

	found := false
	dropped := 0
	for _, rec := range records {
		if rec.Source != kindAll {
			continue
		}
		found = true
		if cov, ok := rec.Get("coverage_reads"); ok && cov.Numeric && cov.Num < covThreshold {
			dropped++
			continue
		}
		row := qc.NewAggregatedRow(rec.Sample, string(rec.Region))
		for _, name := range locusColumns[2:] {
			v, _ := rec.Get(name)
			row.SetCell(name, qc.Cell{Value: v})
		}
		table.Rows = append(table.Rows, row)
	}
	if !found {
		return nil, 0
	}
	return table, dropped
}

// summaryHeaders builds the summary table columns.
func summaryHeaders() []report.Header {
	min := 0.0
	max := 100.0
	return []report.Header{
		{ID: "num_sites", Title: "Number of sites"},
		{ID: "num_unstable_sites", Title: "Number of unstable sites"},
		{
			ID:          "perc",
			Title:       "Percentage of unstable sites",
			Description: "MSI score; failing samples are MSI-high",
			Format:      "{:.2f}",
			Suffix:      "%",
			Min:         &min,
			Max:         &max,
		},
	}
}

// lociHeaders builds the per-locus table columns.
func lociHeaders() []report.Header {
	min := 0.0
	return []report.Header{
		{ID: "left_flank_bases", Title: "Left flank"},
		{ID: "repeat_times", Title: "Repeat times", Min: &min},
		{ID: "repeat_unit_bases", Title: "Repeat unit"},
		{ID: "right_flank_bases", Title: "Right flank"},
		{ID: "pro_p", Title: "Pro p"},
		{ID: "pro_q", Title: "Pro q"},
		{ID: "coverage_reads", Title: "Coverage", Min: &min},
		{ID: "threshold", Title: "Threshold"},
	}
}
