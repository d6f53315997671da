// Package varcount aggregates MSH2 hotspot variant counts and flags
// samples whose variant frequency requires confirmatory Sanger
// sequencing.
package varcount

import (
	"fmt"
	"math"
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

// wtSuffix marks the wild-type count column in the tool output.
const wtSuffix = "_wt"

// Module implements the MSH2 hotspot variant-count QC module.
type Module struct{}

// ID implements module.Module.
func (m *Module) ID() string { return "varcount" }

// Name implements module.Module.
func (m *Module) Name() string { return "MSH2 hotspot variant counts" }

// Info implements module.Module.
func (m *Module) Info() string {
	return "Variant counts at the MSH2 c.942 hotspot with frequencies compared against the Sanger confirmation threshold"
}

// Patterns implements module.Module.
func (m *Module) Patterns() []discovery.Pattern {
	return []discovery.Pattern{
		{Glob: "*.counts.txt", Kind: "counts", Trim: []string{".counts.txt"}},
	}
}

// Parse reads a counts file: the header tokens sit on the third line
// and the values on the fourth, space-separated, with columns 2-6
// carrying the wild-type count and the per-variant counts.
func (m *Module) Parse(hit discovery.Hit, data []byte) ([]*qc.MetricRecord, error) {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("expected at least 4 lines, got %d", len(lines))
	}

	headers := carriedColumns(lines[2])
	values := carriedColumns(lines[3])
	if len(headers) == 0 || len(values) < len(headers) {
		return nil, fmt.Errorf("header and value columns do not line up")
	}

	rec := qc.NewMetricRecord(hit.Sample)
	rec.Source = hit.Kind
	for i, name := range headers {
		v := qc.ParseValue(values[i])
		if !v.Numeric {
			return nil, fmt.Errorf("count %q for %s is not numeric", values[i], name)
		}
		rec.Set(name, v)
	}
	return []*qc.MetricRecord{rec}, nil
}

// carriedColumns returns columns 2-6 of a space-separated line.
func carriedColumns(line string) []string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil
	}
	end := 6
	if len(fields) < end {
		end = len(fields)
	}
	return fields[1:end]
}

// Aggregate computes per-variant frequencies against the wild-type
// count and flags frequencies at or above the Sanger threshold. The
// threshold has no default: without it the module contributes nothing.
func (m *Module) Aggregate(cfg *config.Config, records []*qc.MetricRecord) (*module.Result, error) {
	if len(records) == 0 {
		return nil, module.ErrNoSamples
	}
	if cfg.VarCount.SangerThreshold == nil {
		return nil, fmt.Errorf("%w: MSH2_hotspot_varcount_config.sanger_threshold", module.ErrMissingConfig)
	}
	sanger := threshold.PassFail(*cfg.VarCount.SangerThreshold, threshold.HigherIsWorse)

	bySample := make(map[qc.SampleKey]*qc.MetricRecord)
	var samples []qc.SampleKey
	for _, rec := range records {
		if existing, ok := bySample[rec.Sample]; ok {
			existing.Merge(rec)
			continue
		}
		bySample[rec.Sample] = rec
		samples = append(samples, rec.Sample)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	columns := variantColumns(bySample, samples)
	if len(columns) == 0 {
		return nil, module.ErrNoSamples
	}

	table := &report.Table{
		ID:       "msh2_hotspot_varcount",
		Title:    m.Name(),
		Info:     m.Info(),
		Headers:  tableHeaders(columns),
		NoViolin: true,
		SortRows: true,
	}
	var warnings []string
	for _, sample := range samples {
		row, warn := frequencyRow(bySample[sample], columns, sanger)
		table.Rows = append(table.Rows, row)
		warnings = append(warnings, warn...)
	}

	return &module.Result{
		Tables:   []*report.Table{table},
		Warnings: warnings,
	}, nil
}

// Emit implements module.Module.
func (m *Module) Emit(res *module.Result, rep *report.Report) {
	for _, t := range res.Tables {
		rep.AddTable(t)
	}
}

// variantColumns returns the union of observed count columns in
// first-seen order, wild-type first.
func variantColumns(bySample map[qc.SampleKey]*qc.MetricRecord, samples []qc.SampleKey) []string {
	seen := make(map[string]bool)
	var wt []string
	var variants []string
	for _, sample := range samples {
		for _, name := range bySample[sample].Order {
			if seen[name] {
				continue
			}
			seen[name] = true
			if strings.HasSuffix(name, wtSuffix) {
				wt = append(wt, name)
			} else {
				variants = append(variants, name)
			}
		}
	}
	return append(wt, variants...)
}

// frequencyRow builds one sample's row: the raw wild-type count and,
// per variant, "frequency(count)" classified against the Sanger
// threshold.
func frequencyRow(rec *qc.MetricRecord, columns []string, sanger threshold.Bounds) (*qc.AggregatedRow, []string) {
	row := qc.NewAggregatedRow(rec.Sample, "")

	var wtCount float64
	var warnings []string
	for _, name := range columns {
		if !strings.HasSuffix(name, wtSuffix) {
			continue
		}
		if v, ok := rec.Get(name); ok && v.Numeric {
			wtCount = v.Num
			row.SetCell(name, qc.Cell{Value: v})
		} else {
			warnings = append(warnings,
				fmt.Sprintf("sample %s: wild-type count %s missing", rec.Sample, name))
			row.SetCell(name, qc.Cell{Value: qc.Text("N/A"), Status: qc.Undetermined})
		}
	}

	for _, name := range columns {
		if strings.HasSuffix(name, wtSuffix) {
			continue
		}
		v, ok := rec.Get(name)
		if !ok || !v.Numeric {
			row.SetCell(name, qc.Cell{Value: qc.Text("N/A"), Status: qc.Undetermined})
			continue
		}
		total := wtCount + v.Num
		if total == 0 {
			row.SetCell(name, qc.Cell{Value: qc.Text("N/A"), Status: qc.Undetermined})
			continue
		}
		freq := math.Round(v.Num/total*100*100) / 100
		cell := qc.Cell{
			Value:  qc.Text(fmt.Sprintf("%.2f(%d)", freq, int(v.Num))),
			Status: threshold.Classify(freq, sanger),
		}
		row.SetCell(name, cell)
	}
	return row, warnings
}

// tableHeaders builds the table columns from the observed count
// column names.
func tableHeaders(columns []string) []report.Header {
	headers := make([]report.Header, 0, len(columns))
	for _, name := range columns {
		if strings.HasSuffix(name, wtSuffix) {
			headers = append(headers, report.Header{
				ID:          name,
				Title:       "WT count",
				Description: "Wild-type read count at the hotspot",
				Scale:       "PuBu",
			})
			continue
		}
		headers = append(headers, report.Header{
			ID:          name,
			Title:       fmt.Sprintf("%s (freq%%, counts)", name),
			Description: "Variant frequency as percent of wild-type plus variant reads; failing cells require Sanger confirmation",
		})
	}
	return headers
}
