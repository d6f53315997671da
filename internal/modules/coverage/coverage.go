// Package coverage aggregates mosdepth coverage-distribution output:
// per-sample depth-threshold percentages for the general statistics
// table and per-panel rows for the detailed coverage table.
package coverage

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/discovery"
	"github.com/cmgg/labqc/internal/module"
	"github.com/cmgg/labqc/internal/panel"
	"github.com/cmgg/labqc/internal/qc"
	"github.com/cmgg/labqc/internal/report"
	"github.com/cmgg/labqc/internal/threshold"
)

func init() {
	module.Register(&Module{})
}

// File kinds. Region output is preferred over global when a sample has
// both.
const (
	kindRegion = "region_dist"
	kindGlobal = "global_dist"
)

// totalRegion is the mosdepth pseudo-contig carrying the sample-wide
// cumulative distribution.
const totalRegion = "total"

// Module implements the coverage QC module.
type Module struct{}

// ID implements module.Module.
func (m *Module) ID() string { return "coverage" }

// Name implements module.Module.
func (m *Module) Name() string { return "Coverage" }

// Info implements module.Module.
func (m *Module) Info() string {
	return "Fraction of bases covered at configured depth thresholds, calculated across the target regions"
}

// Patterns implements module.Module.
func (m *Module) Patterns() []discovery.Pattern {
	return []discovery.Pattern{
		{
			Glob: "*.mosdepth.region.dist.txt",
			Kind: kindRegion,
			Trim: []string{".mosdepth.region.dist.txt"},
		},
		{
			Glob: "*.mosdepth.global.dist.txt",
			Kind: kindGlobal,
			Trim: []string{".mosdepth.global.dist.txt"},
		},
	}
}

// cumMetric names the stored cumulative fraction at a depth cutoff.
func cumMetric(depth int) string {
	return fmt.Sprintf("cum_%d", depth)
}

// Parse reads a mosdepth distribution file: one row per (contig, depth
// cutoff) with the cumulative fraction of bases covered at or above
// the cutoff. The "total" contig becomes the sample-level record; every
// other contig becomes a region record. Zero fractions are not stored;
// missing depths read back as zero.
func (m *Module) Parse(hit discovery.Hit, data []byte) ([]*qc.MetricRecord, error) {
	byRegion := make(map[qc.RegionKey]*qc.MetricRecord)
	var order []qc.RegionKey

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 columns, got %d", lineNo, len(fields))
		}
		contig := fields[0]
		depth, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad depth cutoff %q", lineNo, fields[1])
		}
		fraction, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad fraction %q", lineNo, fields[2])
		}
		if fraction == 0 {
			continue
		}

		region := qc.RegionKey(contig)
		rec, ok := byRegion[region]
		if !ok {
			rec = qc.NewMetricRecord(hit.Sample)
			rec.Source = hit.Kind
			if region != totalRegion {
				rec.Region = region
			}
			byRegion[region] = rec
			order = append(order, region)
		}
		rec.Set(cumMetric(depth), qc.Number(fraction))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	records := make([]*qc.MetricRecord, 0, len(order))
	for _, region := range order {
		records = append(records, byRegion[region])
	}
	return records, nil
}

// Aggregate computes per-sample general statistics over the configured
// depth thresholds and merges region records against the configured
// panels. Hidden thresholds are computed and classified like visible
// ones; hiding is presentation-only.
func (m *Module) Aggregate(cfg *config.Config, records []*qc.MetricRecord) (*module.Result, error) {
	if len(records) == 0 {
		return nil, module.ErrNoSamples
	}

	visible := cfg.Coverage.GeneralStatsCoverage
	hidden := cfg.Coverage.GeneralStatsCoverageHidden
	depths := combineDepths(visible, hidden)
	passFraction := 90.0
	if cfg.Coverage.PassFraction != nil {
		passFraction = *cfg.Coverage.PassFraction
	}

	set := make(threshold.Set, len(depths))
	for _, d := range depths {
		set[panel.DepthMetric(d)] = threshold.PassFail(passFraction, threshold.LowerIsWorse)
	}

	totals := totalsBySample(records)
	if len(totals) == 0 {
		return nil, module.ErrNoSamples
	}

	res := &module.Result{
		GeneralStats:        make(map[qc.SampleKey]*qc.AggregatedRow, len(totals)),
		GeneralStatsHeaders: genStatsHeaders(depths, hiddenSet(visible, hidden)),
	}

	samples := sortedSamples(totals)
	for _, sample := range samples {
		res.GeneralStats[sample] = genStatsRow(sample, totals[sample], depths, set)
	}

	if panels := panelDefs(cfg, depths); len(panels) > 0 {
		regionRecords := depthPercentages(records, depths)
		rows := panel.Merge(regionRecords, panels, set)
		if len(rows) > 0 {
			res.Tables = append(res.Tables, &report.Table{
				ID:      "coverage_panels",
				Title:   "Coverage per panel",
				Info:    m.Info(),
				Headers: panelHeaders(depths),
				Rows:    rows,
			})
		}
	}

	res.Infos = unreachedThresholds(set, depths, records)
	res.ShowHide = showHideButtons(samples, res.GeneralStats, visible, passFraction)
	return res, nil
}

// unreachedThresholds names the configured depth thresholds no input
// distribution ever reached. These are informational: a per-cohort
// config legitimately lists depths a given run does not produce.
func unreachedThresholds(set threshold.Set, depths []int, records []*qc.MetricRecord) []string {
	cumSet := make(threshold.Set, len(depths))
	for _, d := range depths {
		cumSet[cumMetric(d)] = set[panel.DepthMetric(d)]
	}

	var missing []int
	for _, name := range cumSet.Unreferenced(records) {
		var d int
		if _, err := fmt.Sscanf(name, "cum_%d", &d); err == nil {
			missing = append(missing, d)
		}
	}
	sort.Ints(missing)

	infos := make([]string, 0, len(missing))
	for _, d := range missing {
		infos = append(infos, fmt.Sprintf(
			"configured %dX threshold not reached by any input distribution", d))
	}
	return infos
}

// Emit implements module.Module.
func (m *Module) Emit(res *module.Result, rep *report.Report) {
	rep.AddGeneralStats(res.GeneralStats, res.GeneralStatsHeaders)
	for _, t := range res.Tables {
		rep.AddTable(t)
	}
	if res.ShowHide != nil {
		rep.ShowHide = res.ShowHide
	}
}

// totalsBySample selects one sample-level record per sample, preferring
// region output over global when both exist.
func totalsBySample(records []*qc.MetricRecord) map[qc.SampleKey]*qc.MetricRecord {
	totals := make(map[qc.SampleKey]*qc.MetricRecord)
	for _, rec := range records {
		if rec.Region != "" {
			continue
		}
		existing, ok := totals[rec.Sample]
		if ok && existing.Source == kindRegion {
			continue
		}
		if ok && rec.Source == kindGlobal {
			continue
		}
		totals[rec.Sample] = rec
	}
	return totals
}

// genStatsRow builds one sample's summary row: a percent-bases cell per
// configured depth plus the median coverage.
func genStatsRow(sample qc.SampleKey, total *qc.MetricRecord, depths []int, set threshold.Set) *qc.AggregatedRow {
	row := qc.NewAggregatedRow(sample, "")
	for _, d := range depths {
		metric := panel.DepthMetric(d)
		pct := 0.0
		if v, ok := total.Get(cumMetric(d)); ok && v.Numeric {
			pct = v.Num * 100.0
		}
		value := qc.Number(pct)
		row.SetCell(metric, qc.Cell{Value: value, Status: set.Apply(metric, value)})
	}
	row.SetCell("median_coverage", qc.Cell{Value: medianCoverage(total)})
	return row
}

// medianCoverage returns the largest depth whose cumulative fraction is
// at least 0.5, or "N/A" when the distribution never reaches it.
func medianCoverage(total *qc.MetricRecord) qc.Value {
	depths := make([]int, 0, len(total.Order))
	for _, name := range total.Order {
		var d int
		if _, err := fmt.Sscanf(name, "cum_%d", &d); err == nil {
			depths = append(depths, d)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(depths)))
	for _, d := range depths {
		if v, ok := total.Get(cumMetric(d)); ok && v.Numeric && v.Num >= 0.5 {
			return qc.Number(float64(d))
		}
	}
	return qc.Text("N/A")
}

// depthPercentages converts region records from cumulative fractions to
// percent-bases-at-depth metrics for the panel merge.
func depthPercentages(records []*qc.MetricRecord, depths []int) []*qc.MetricRecord {
	var out []*qc.MetricRecord
	for _, rec := range records {
		if rec.Region == "" || rec.Source != kindRegion {
			continue
		}
		converted := qc.NewMetricRecord(rec.Sample)
		converted.Region = rec.Region
		converted.Source = rec.Source
		for _, d := range depths {
			pct := 0.0
			if v, ok := rec.Get(cumMetric(d)); ok && v.Numeric {
				pct = v.Num * 100.0
			}
			converted.Set(panel.DepthMetric(d), qc.Number(pct))
		}
		out = append(out, converted)
	}
	return out
}

// panelDefs builds the configured panel definitions. Panels without an
// explicit depth list inherit the combined general-statistics depths,
// so the detailed table shows hidden thresholds too.
func panelDefs(cfg *config.Config, depths []int) []panel.Definition {
	defs := make([]panel.Definition, 0, len(cfg.Coverage.Panels))
	for _, p := range cfg.Coverage.Panels {
		regions := make([]qc.RegionKey, 0, len(p.Regions))
		for _, r := range p.Regions {
			regions = append(regions, qc.RegionKey(r))
		}
		d := p.Depths
		if len(d) == 0 {
			d = depths
		}
		defs = append(defs, panel.Definition{Name: p.Name, Regions: regions, Depths: d})
	}
	return defs
}

// genStatsHeaders builds the summary column set: one column per depth
// (hidden per configuration) plus the median coverage column.
func genStatsHeaders(depths []int, hidden map[int]bool) []report.Header {
	min := 0.0
	max := 100.0
	headers := make([]report.Header, 0, len(depths)+1)
	for _, d := range depths {
		headers = append(headers, report.Header{
			ID:          panel.DepthMetric(d),
			Title:       fmt.Sprintf(">= %dX", d),
			Description: fmt.Sprintf("Fraction of bases with at least %dX coverage", d),
			Suffix:      "%",
			Format:      "{:.1f}",
			Min:         &min,
			Max:         &max,
			Hidden:      hidden[d],
		})
	}
	headers = append(headers, report.Header{
		ID:          "median_coverage",
		Title:       "Median",
		Description: "Median coverage",
		Suffix:      "X",
		Scale:       "BuPu",
		Min:         &min,
	})
	return headers
}

// panelHeaders builds the detailed table columns. Hidden thresholds are
// shown here: hiding applies to the summary view only.
func panelHeaders(depths []int) []report.Header {
	min := 0.0
	max := 100.0
	headers := []report.Header{{
		ID:          "regions_observed",
		Title:       "Regions",
		Description: "Panel regions observed for this sample",
		Min:         &min,
	}}
	for _, d := range depths {
		headers = append(headers, report.Header{
			ID:          panel.DepthMetric(d),
			Title:       fmt.Sprintf(">= %dX", d),
			Description: fmt.Sprintf("Mean fraction of panel bases with at least %dX coverage", d),
			Suffix:      "%",
			Format:      "{:.1f}",
			Min:         &min,
			Max:         &max,
		})
	}
	return headers
}

// showHideButtons groups samples by run-name prefix (the part before
// the first underscore) and colors each group by whether every plain
// run sample passes the first visible depth threshold.
func showHideButtons(samples []qc.SampleKey, rows map[qc.SampleKey]*qc.AggregatedRow, visible []int, passFraction float64) *report.ShowHide {
	if len(visible) == 0 {
		return nil
	}
	metric := panel.DepthMetric(visible[0])

	const (
		passColor = "#5cb85c"
		failColor = "#d9534f"
	)

	sh := &report.ShowHide{}
	colorByGroup := make(map[string]string)
	for _, sample := range samples {
		name := string(sample)
		group := name
		if i := strings.Index(name, "_"); i >= 0 {
			group = name[:i]
		}
		if _, ok := colorByGroup[group]; !ok {
			colorByGroup[group] = ""
			sh.Names = append(sh.Names, group)
			sh.Modes = append(sh.Modes, "show")
		}

		// Only the plain run-level sample (no underscore) drives the
		// group color.
		if name != group {
			continue
		}
		row, ok := rows[sample]
		if !ok {
			continue
		}
		cell, ok := row.Cells[metric]
		if !ok || !cell.Value.Numeric {
			continue
		}
		if cell.Value.Num < passFraction {
			colorByGroup[group] = failColor
		} else if colorByGroup[group] != failColor {
			colorByGroup[group] = passColor
		}
	}

	for _, group := range sh.Names {
		sh.Colors = append(sh.Colors, colorByGroup[group])
	}
	return sh
}

// combineDepths merges the visible and hidden threshold lists, keeping
// visible order first and dropping duplicates.
func combineDepths(visible, hidden []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, d := range append(append([]int{}, visible...), hidden...) {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// hiddenSet indexes the hidden thresholds, minus any that are also
// configured visible.
func hiddenSet(visible, hidden []int) map[int]bool {
	vis := make(map[int]bool, len(visible))
	for _, d := range visible {
		vis[d] = true
	}
	set := make(map[int]bool, len(hidden))
	for _, d := range hidden {
		if !vis[d] {
			set[d] = true
		}
	}
	return set
}

// sortedSamples returns the sample keys in lexical order.
func sortedSamples(totals map[qc.SampleKey]*qc.MetricRecord) []qc.SampleKey {
	samples := make([]qc.SampleKey, 0, len(totals))
	for s := range totals {
		samples = append(samples, s)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return samples
}
