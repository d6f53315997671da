// Package panel merges per-region coverage records against genome-panel
// definitions: named, ordered sets of regions with the depth thresholds
// of interest for each panel.
package panel

import (
	"fmt"
	"sort"

	"github.com/cmgg/labqc/internal/qc"
	"github.com/cmgg/labqc/internal/threshold"
)

// Definition is one named panel: an ordered set of regions plus the
// depth thresholds of interest. Definitions come from configuration and
// are immutable for the duration of a run.
type Definition struct {
	Name    string
	Regions []qc.RegionKey
	Depths  []int
}

// Contains reports whether the panel lists the given region.
func (d Definition) Contains(region qc.RegionKey) bool {
	for _, r := range d.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// DepthMetric is the metric name for a percent-bases-at-depth column.
func DepthMetric(depth int) string {
	return fmt.Sprintf("%d_x_pc", depth)
}

// Merge cross-references region-keyed records against the configured
// panels and produces one row per (sample, panel) pair whose region set
// intersects the sample's observed regions. Per-depth cells hold the
// mean over the panel's observed member regions, classified against
// set. A region belonging to several panels contributes independently
// to each; regions in no panel are dropped from panel rows (they still
// feed the sample-level aggregate upstream).
//
// Rows are ordered by sample, then by configured panel order, so that
// repeated runs over identical inputs emit identical row sets.
func Merge(records []*qc.MetricRecord, panels []Definition, set threshold.Set) []*qc.AggregatedRow {
	byRegion := make(map[qc.SampleKey]map[qc.RegionKey]*qc.MetricRecord)
	for _, rec := range records {
		if rec.Region == "" {
			continue
		}
		perSample, ok := byRegion[rec.Sample]
		if !ok {
			perSample = make(map[qc.RegionKey]*qc.MetricRecord)
			byRegion[rec.Sample] = perSample
		}
		if existing, ok := perSample[rec.Region]; ok {
			existing.Merge(rec)
		} else {
			perSample[rec.Region] = rec
		}
	}

	samples := make([]qc.SampleKey, 0, len(byRegion))
	for s := range byRegion {
		samples = append(samples, s)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	var rows []*qc.AggregatedRow
	for _, sample := range samples {
		observed := byRegion[sample]
		for _, def := range panels {
			row := mergePanel(sample, observed, def, set)
			if row != nil {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// mergePanel builds the row for one (sample, panel) pair, or nil when
// none of the panel's regions were observed for the sample.
func mergePanel(sample qc.SampleKey, observed map[qc.RegionKey]*qc.MetricRecord, def Definition, set threshold.Set) *qc.AggregatedRow {
	var members []*qc.MetricRecord
	for _, region := range def.Regions {
		if rec, ok := observed[region]; ok {
			members = append(members, rec)
		}
	}
	if len(members) == 0 {
		return nil
	}

	row := qc.NewAggregatedRow(sample, def.Name)
	row.SetCell("regions_observed", qc.Cell{
		Value: qc.Number(float64(len(members))),
	})

	for _, depth := range def.Depths {
		metric := DepthMetric(depth)
		sum := 0.0
		n := 0
		for _, rec := range members {
			v, ok := rec.Get(metric)
			if !ok || !v.Numeric {
				continue
			}
			sum += v.Num
			n++
		}
		if n == 0 {
			row.SetCell(metric, qc.Cell{
				Value:  qc.Text("N/A"),
				Status: qc.Undetermined,
			})
			continue
		}
		mean := sum / float64(n)
		value := qc.Number(mean)
		row.SetCell(metric, qc.Cell{
			Value:  value,
			Status: set.Apply(metric, value),
		})
	}
	return row
}
