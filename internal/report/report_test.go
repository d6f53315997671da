package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cmgg/labqc/internal/qc"
)

func row(sample string, cells map[string]qc.Cell) *qc.AggregatedRow {
	r := qc.NewAggregatedRow(qc.SampleKey(sample), "")
	for name, c := range cells {
		r.SetCell(name, c)
	}
	return r
}

func TestAddGeneralStatsMergesRows(t *testing.T) {
	rep := New()

	rep.AddGeneralStats(map[qc.SampleKey]*qc.AggregatedRow{
		"D1": row("D1", map[string]qc.Cell{"20_x_pc": {Value: qc.Number(95)}}),
	}, []Header{{ID: "20_x_pc", Title: ">= 20X"}})

	rep.AddGeneralStats(map[qc.SampleKey]*qc.AggregatedRow{
		"D1": row("D1", map[string]qc.Cell{"median_coverage": {Value: qc.Number(40)}}),
		"D2": row("D2", map[string]qc.Cell{"median_coverage": {Value: qc.Number(35)}}),
	}, []Header{{ID: "median_coverage", Title: "Median"}})

	rows := rep.GeneralStatsRows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// One row per sample, never one per contributing module.
	if rows[0].Sample != "D1" || rows[1].Sample != "D2" {
		t.Errorf("rows not sorted by sample: %s, %s", rows[0].Sample, rows[1].Sample)
	}
	if _, ok := rows[0].Cells["20_x_pc"]; !ok {
		t.Error("D1 lost its first module's cell after the merge")
	}
	if _, ok := rows[0].Cells["median_coverage"]; !ok {
		t.Error("D1 missing the second module's cell")
	}
}

func TestAddGeneralStatsDeduplicatesHeaders(t *testing.T) {
	rep := New()
	h := []Header{{ID: "20_x_pc", Title: ">= 20X"}}

	rep.AddGeneralStats(nil, h)
	rep.AddGeneralStats(nil, h)

	headers := rep.GeneralStatsHeaders()
	if len(headers) != 1 {
		t.Fatalf("got %d headers, want 1", len(headers))
	}
}

func TestHeaderSetIsStableAcrossRows(t *testing.T) {
	rep := New()

	rep.AddGeneralStats(map[qc.SampleKey]*qc.AggregatedRow{
		"D1": row("D1", map[string]qc.Cell{"20_x_pc": {Value: qc.Number(95)}}),
		"D2": row("D2", map[string]qc.Cell{"20_x_pc": {Value: qc.Number(80)}}),
	}, []Header{
		{ID: "20_x_pc"},
		{ID: "30_x_pc", Hidden: true},
	})

	// The column set is fixed per run; per-row values never change it.
	want := []Header{{ID: "20_x_pc"}, {ID: "30_x_pc", Hidden: true}}
	if diff := cmp.Diff(want, rep.GeneralStatsHeaders()); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestAddWarning(t *testing.T) {
	rep := New()
	rep.AddWarning("one")
	rep.AddWarning("two")
	if diff := cmp.Diff([]string{"one", "two"}, rep.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}
