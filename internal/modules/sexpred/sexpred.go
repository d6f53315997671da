// Package sexpred aggregates sex-determination results. Three external
// methods each write one file per sample (read-ratio, X-heterozygosity,
// SRY coverage); the module merges the partial results, takes a
// majority vote, and reports a certainty for the match.
package sexpred

import (
	"fmt"
	"sort"
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

// File kinds, one per determination method.
const (
	kindXY   = "xy"
	kindHetX = "hetx"
	kindSRY  = "sry"
)

// methodKinds is the fixed method order used for voting and emission.
var methodKinds = []string{kindXY, kindSRY, kindHetX}

// undetermined marks a method whose input file was missing for a
// sample. Missing inputs are reported, never inferred.
const undetermined = "undetermined"

// Module implements the sex-prediction QC module.
type Module struct{}

// ID implements module.Module.
func (m *Module) ID() string { return "sexpred" }

// Name implements module.Module.
func (m *Module) Name() string { return "Sex prediction" }

// Info implements module.Module.
func (m *Module) Info() string {
	return "Predicted sex per determination method with a majority-vote consensus and match certainty"
}

// Patterns implements module.Module.
func (m *Module) Patterns() []discovery.Pattern {
	return []discovery.Pattern{
		{Glob: "*_xy.tsv", Kind: kindXY, Trim: []string{"_xy.tsv"}},
		{Glob: "*_hetx.tsv", Kind: kindHetX, Trim: []string{"_hetx.tsv"}},
		{Glob: "*_sry.tsv", Kind: kindSRY, Trim: []string{"_sry.tsv"}},
	}
}

// callMetric names the per-method predicted-sex metric.
func callMetric(kind string) string {
	return "sex_" + kind
}

// Parse reads one method's TSV: a header line and a value line, of
// which columns 2-6 carry the call and its supporting metrics. The
// first carried column is the method's sex call; the rest keep their
// header names (ratio_chry_chrx, coverage_sry, het_fraction, ...).
func (m *Module) Parse(hit discovery.Hit, data []byte) ([]*qc.MetricRecord, error) {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("expected a header and a value line, got %d lines", len(lines))
	}

	headers := carriedColumns(lines[0])
	values := carriedColumns(lines[1])
	if len(headers) == 0 || len(values) == 0 {
		return nil, fmt.Errorf("no data columns found")
	}
	if len(values) < len(headers) {
		headers = headers[:len(values)]
	}

	rec := qc.NewMetricRecord(hit.Sample)
	rec.Source = hit.Kind
	for i, name := range headers {
		if i == 0 {
			rec.Set(callMetric(hit.Kind), qc.Text(normalizeSex(values[0])))
			continue
		}
		rec.Set(name, qc.ParseValue(values[i]))
	}
	return []*qc.MetricRecord{rec}, nil
}

// carriedColumns returns columns 2-6 of a tab-separated line.
func carriedColumns(line string) []string {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) < 2 {
		return nil
	}
	end := 6
	if len(fields) < end {
		end = len(fields)
	}
	return fields[1:end]
}

// normalizeSex abbreviates the tool's male/female calls; anything else
// (e.g. "unknown (too few SNPs)") passes through unchanged.
func normalizeSex(call string) string {
	switch call {
	case "male":
		return "M"
	case "female":
		return "F"
	}
	return call
}

// Aggregate merges the up-to-three partial records per sample and adds
// the consensus call. Classification proceeds on whatever subset of
// methods is present; missing methods are marked undetermined.
func (m *Module) Aggregate(cfg *config.Config, records []*qc.MetricRecord) (*module.Result, error) {
	if len(records) == 0 {
		return nil, module.ErrNoSamples
	}

	bySample := make(map[qc.SampleKey]*qc.MetricRecord)
	var samples []qc.SampleKey
	for _, rec := range records {
		existing, ok := bySample[rec.Sample]
		if !ok {
			bySample[rec.Sample] = rec
			samples = append(samples, rec.Sample)
			continue
		}
		existing.Merge(rec)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	certaintyBounds := threshold.Bounds{Warn: 1, Fail: 0.4, Direction: threshold.LowerIsWorse}

	table := &report.Table{
		ID:      "sexpred",
		Title:   m.Name(),
		Info:    m.Info(),
		Headers: tableHeaders(),
	}
	for _, sample := range samples {
		table.Rows = append(table.Rows, consensusRow(bySample[sample], certaintyBounds))
	}

	return &module.Result{Tables: []*report.Table{table}}, nil
}

// Emit implements module.Module.
func (m *Module) Emit(res *module.Result, rep *report.Report) {
	for _, t := range res.Tables {
		rep.AddTable(t)
	}
}

// consensusRow builds one sample's row: certainty, consensus call, the
// three per-method calls, and the supporting metrics.
func consensusRow(rec *qc.MetricRecord, certaintyBounds threshold.Bounds) *qc.AggregatedRow {
	votesM, votesF := 0, 0
	calls := make(map[string]string, len(methodKinds))
	for _, kind := range methodKinds {
		call := undetermined
		if v, ok := rec.Get(callMetric(kind)); ok {
			call = v.Str
		}
		calls[kind] = call
		switch call {
		case "M":
			votesM++
		case "F":
			votesF++
		}
	}

	row := qc.NewAggregatedRow(rec.Sample, "")

	votes := votesM
	consensus := "M"
	if votesF > votesM {
		votes = votesF
		consensus = "F"
	}
	if votesM == 0 && votesF == 0 {
		consensus = undetermined
	}
	certainty := float64(votes) / float64(len(methodKinds))

	certaintyCell := qc.Cell{
		Value:  qc.Number(certainty),
		Status: threshold.Classify(certainty, certaintyBounds),
	}
	if consensus == undetermined {
		certaintyCell.Status = qc.Undetermined
	}
	row.SetCell("certainty", certaintyCell)
	row.SetCell("predicted_sex", qc.Cell{Value: qc.Text(consensus)})

	for _, kind := range methodKinds {
		cell := qc.Cell{Value: qc.Text(calls[kind])}
		if calls[kind] != "M" && calls[kind] != "F" {
			cell.Status = qc.Undetermined
		}
		row.SetCell(callMetric(kind), cell)
	}

	for _, name := range []string{"ratio_chry_chrx", "coverage_sry", "het_fraction"} {
		if v, ok := rec.Get(name); ok {
			row.SetCell(name, qc.Cell{Value: v})
		}
	}
	return row
}

// tableHeaders builds the detailed table columns.
func tableHeaders() []report.Header {
	min := 0.0
	max := 1.0
	return []report.Header{
		{
			ID:          "certainty",
			Title:       "Certainty of sex match",
			Description: "Fraction of determination methods agreeing with the consensus call",
			Format:      "{:.0%}",
			Min:         &min,
			Max:         &max,
		},
		{
			ID:          "predicted_sex",
			Title:       "Predicted sex",
			Description: "Majority vote over the available methods",
		},
		{
			ID:          callMetric(kindXY),
			Title:       "Sex (XY method)",
			Description: "Predicted sex based on chromosome read ratios",
		},
		{
			ID:          callMetric(kindSRY),
			Title:       "Sex (SRY method)",
			Description: "Predicted sex based on coverage of the SRY gene",
		},
		{
			ID:          callMetric(kindHetX),
			Title:       "Sex (HETX method)",
			Description: "Predicted sex based on the fraction of heterozygous variants on chromosome X",
		},
		{
			ID:          "ratio_chry_chrx",
			Title:       "ChrY/ChrX reads ratio",
			Description: "Ratio of reads mapped to ChrY vs ChrX",
			Format:      "{:.4f}",
			Scale:       "Purples",
			Min:         &min,
		},
		{
			ID:          "coverage_sry",
			Title:       "Coverage SRY",
			Description: "Mean coverage of the SRY region on chrY",
			Format:      "{:,.2f}",
			Scale:       "Blues",
			Min:         &min,
		},
		{
			ID:          "het_fraction",
			Title:       "Fraction HETX",
			Description: "Fraction of heterozygous SNPs on chrX",
			Format:      "{:,.4f}",
			Scale:       "Reds",
			Min:         &min,
		},
	}
}
