// Package threshold classifies metric values against configurable
// pass/warn/fail boundaries.
package threshold

import "github.com/cmgg/labqc/internal/qc"

// Direction states which way a metric degrades. It is always explicit
// per metric: some metrics are worse when low (percent bases above a
// depth), others when high (contamination counts, variant frequency).
type Direction int

// Comparison directions.
const (
	LowerIsWorse Direction = iota
	HigherIsWorse
)

// Bounds holds the warn and fail boundaries for one metric. With
// LowerIsWorse a value below Fail fails and a value below Warn warns;
// with HigherIsWorse the comparisons flip. Setting Warn equal to Fail
// collapses the warn band, giving a plain pass/fail split.
type Bounds struct {
	Warn      float64
	Fail      float64
	Direction Direction
}

// Set maps metric names to their classification bounds. A Set is
// externally supplied configuration, immutable for the duration of a
// run.
type Set map[string]Bounds

// Classify assigns a qualitative status to a value. It is a pure
// function of (value, bounds): no metric-name heuristics, no config
// lookups.
func Classify(value float64, b Bounds) qc.Status {
	switch b.Direction {
	case HigherIsWorse:
		if value >= b.Fail {
			return qc.Fail
		}
		if value >= b.Warn {
			return qc.Warn
		}
	default:
		if value < b.Fail {
			return qc.Fail
		}
		if value < b.Warn {
			return qc.Warn
		}
	}
	return qc.Pass
}

// Apply classifies a named metric value against the set. Metrics with
// no configured bounds, and non-numeric values, are left unclassified;
// presentation renders them without pass/fail coloring.
func (s Set) Apply(metric string, v qc.Value) qc.Status {
	b, ok := s[metric]
	if !ok || !v.Numeric {
		return ""
	}
	return Classify(v.Num, b)
}

// Unreferenced returns the metric names in the set that never occur in
// the given records. These are logged informationally by the engine:
// per-cohort panels legitimately configure thresholds for metrics a
// given run does not produce.
func (s Set) Unreferenced(records []*qc.MetricRecord) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		for name := range r.Metrics {
			seen[name] = true
		}
	}

	var missing []string
	for name := range s {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// PassFail returns bounds with no warn band at the given boundary.
func PassFail(bound float64, dir Direction) Bounds {
	return Bounds{Warn: bound, Fail: bound, Direction: dir}
}
