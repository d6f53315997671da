// Package qc defines the core data model shared by all QC modules:
// sample-keyed metric records, classified cells, and aggregated rows.
package qc

import (
	"math"
	"strconv"
)

// SampleKey identifies one biological sample. It is derived from a
// filename by stripping a recognized suffix and any configured trim
// patterns; collisions across files are merged, never duplicated.
type SampleKey string

// RegionKey identifies a genomic region or gene of interest. A region
// may belong to zero or more panel definitions.
type RegionKey string

// Status is the qualitative classification of a metric value.
type Status string

// Classification results. The zero value means the metric was emitted
// unclassified (no threshold configured for it).
const (
	Pass         Status = "pass"
	Warn         Status = "warn"
	Fail         Status = "fail"
	Undetermined Status = "undetermined"
)

// Value is a metric value: numeric or categorical. Upstream tools emit
// both kinds in the same tables, so the union is explicit rather than
// forced through string parsing at every consumer.
type Value struct {
	Num     float64
	Str     string
	Numeric bool
}

// Number returns a numeric Value.
func Number(n float64) Value {
	return Value{Num: n, Numeric: true}
}

// Text returns a categorical Value.
func Text(s string) Value {
	return Value{Str: s}
}

// ParseValue converts a raw field into a Value. Numeric fields become
// numbers; NaN is normalized to the categorical "N/A"; everything else
// stays categorical.
func ParseValue(raw string) Value {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Text(raw)
	}
	if math.IsNaN(n) {
		return Text("N/A")
	}
	return Number(n)
}

// String renders the value for human-readable output.
func (v Value) String() string {
	if !v.Numeric {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// MetricRecord maps metric names to values for exactly one sample and,
// for coverage, exactly one region. Order preserves insertion so that
// emission is deterministic.
type MetricRecord struct {
	Sample SampleKey
	Region RegionKey

	// Source is the file kind the record was parsed from, for modules
	// that prefer one kind over another when both exist for a sample.
	Source string

	Metrics map[string]Value
	Order   []string
}

// NewMetricRecord returns an empty record for the given sample.
func NewMetricRecord(sample SampleKey) *MetricRecord {
	return &MetricRecord{
		Sample:  sample,
		Metrics: make(map[string]Value),
	}
}

// Set stores a metric value, tracking first-insertion order.
func (r *MetricRecord) Set(name string, v Value) {
	if _, ok := r.Metrics[name]; !ok {
		r.Order = append(r.Order, name)
	}
	r.Metrics[name] = v
}

// Get returns the value for a metric name.
func (r *MetricRecord) Get(name string) (Value, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// Merge copies all metrics of other into r, preserving r's existing
// insertion order for already-known names. Used when several partial
// files contribute to the same sample.
func (r *MetricRecord) Merge(other *MetricRecord) {
	for _, name := range other.Order {
		r.Set(name, other.Metrics[name])
	}
}

// Cell is one emitted metric value with its classification.
type Cell struct {
	Value  Value
	Status Status
}

// AggregatedRow is one emitted record: a sample, an optional panel, and
// an ordered mapping of visible metric name to classified cell. Rows are
// constructed once per run and immutable thereafter.
type AggregatedRow struct {
	Sample SampleKey
	Panel  string
	Cells  map[string]Cell
	Order  []string
}

// NewAggregatedRow returns an empty row for the given sample and panel.
func NewAggregatedRow(sample SampleKey, panel string) *AggregatedRow {
	return &AggregatedRow{
		Sample: sample,
		Panel:  panel,
		Cells:  make(map[string]Cell),
	}
}

// SetCell stores a classified cell, tracking first-insertion order.
func (a *AggregatedRow) SetCell(name string, c Cell) {
	if _, ok := a.Cells[name]; !ok {
		a.Order = append(a.Order, name)
	}
	a.Cells[name] = c
}
