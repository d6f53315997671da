package sexpred

import (
	"testing"

	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/discovery"
	"github.com/cmgg/labqc/internal/qc"
)

func parseMethod(t *testing.T, kind, content string) []*qc.MetricRecord {
	t.Helper()
	m := &Module{}
	hit := discovery.Hit{Kind: kind, Sample: "D1"}
	records, err := m.Parse(hit, []byte(content))
	if err != nil {
		t.Fatalf("Parse(%s): %v", kind, err)
	}
	return records
}

const (
	xyFile   = "sample\tpredicted_sex\tratio_chry_chrx\nD1\tmale\t0.4012\n"
	sryFile  = "sample\tpredicted_sex\tcoverage_sry\nD1\tmale\t31.25\n"
	hetxFile = "sample\tpredicted_sex\thet_fraction\nD1\tmale\t0.0122\n"
)

func TestParseNormalizesCalls(t *testing.T) {
	records := parseMethod(t, kindXY, xyFile)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]

	if v, _ := rec.Get(callMetric(kindXY)); v.Str != "M" {
		t.Errorf("call = %q, want M", v.Str)
	}
	if v, _ := rec.Get("ratio_chry_chrx"); v.Num != 0.4012 {
		t.Errorf("ratio = %v, want 0.4012", v.Num)
	}

	records = parseMethod(t, kindHetX, "sample\tsex\thet_fraction\nD1\tunknown (too few SNPs)\t0.5\n")
	if v, _ := records[0].Get(callMetric(kindHetX)); v.Str != "unknown (too few SNPs)" {
		t.Errorf("unrecognized call rewritten to %q", v.Str)
	}
}

func TestParseRejectsHeaderOnlyFile(t *testing.T) {
	m := &Module{}
	hit := discovery.Hit{Kind: kindXY, Sample: "D1"}
	if _, err := m.Parse(hit, []byte("sample\tpredicted_sex\n")); err == nil {
		t.Error("expected error for a file with no value line")
	}
}

func aggregate(t *testing.T, records []*qc.MetricRecord) *qc.AggregatedRow {
	t.Helper()
	m := &Module{}
	res, err := m.Aggregate(config.Defaults(), records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Tables) != 1 || len(res.Tables[0].Rows) != 1 {
		t.Fatalf("expected one table with one row, got %+v", res.Tables)
	}
	return res.Tables[0].Rows[0]
}

func TestAggregateFullAgreement(t *testing.T) {
	var records []*qc.MetricRecord
	records = append(records, parseMethod(t, kindXY, xyFile)...)
	records = append(records, parseMethod(t, kindSRY, sryFile)...)
	records = append(records, parseMethod(t, kindHetX, hetxFile)...)

	row := aggregate(t, records)

	if c := row.Cells["predicted_sex"]; c.Value.Str != "M" {
		t.Errorf("consensus = %q, want M", c.Value.Str)
	}
	if c := row.Cells["certainty"]; c.Value.Num != 1 || c.Status != qc.Pass {
		t.Errorf("certainty = %v(%s), want 1(pass)", c.Value.Num, c.Status)
	}
}

func TestAggregateMissingMethodStaysUndetermined(t *testing.T) {
	// No SRY file for this sample: its column must say so, never infer.
	var records []*qc.MetricRecord
	records = append(records, parseMethod(t, kindXY, xyFile)...)
	records = append(records, parseMethod(t, kindHetX, hetxFile)...)

	row := aggregate(t, records)

	if c := row.Cells[callMetric(kindSRY)]; c.Value.Str != undetermined || c.Status != qc.Undetermined {
		t.Errorf("sry cell = %q(%s), want undetermined", c.Value.Str, c.Status)
	}
	if c := row.Cells["predicted_sex"]; c.Value.Str != "M" {
		t.Errorf("consensus = %q, want M from the two available methods", c.Value.Str)
	}
	c := row.Cells["certainty"]
	if c.Value.Num <= 0.66 || c.Value.Num >= 0.67 {
		t.Errorf("certainty = %v, want 2/3", c.Value.Num)
	}
	if c.Status != qc.Warn {
		t.Errorf("certainty status = %q, want warn", c.Status)
	}
}

func TestAggregateNoUsableCalls(t *testing.T) {
	records := parseMethod(t, kindHetX, "sample\tsex\thet_fraction\nD1\tunknown (too few SNPs)\t0.5\n")

	row := aggregate(t, records)

	if c := row.Cells["predicted_sex"]; c.Value.Str != undetermined {
		t.Errorf("consensus = %q, want undetermined", c.Value.Str)
	}
	if c := row.Cells["certainty"]; c.Status != qc.Undetermined {
		t.Errorf("certainty status = %q, want undetermined", c.Status)
	}
}

func TestAggregateKeepsSamplesSeparate(t *testing.T) {
	m := &Module{}
	recA, err := m.Parse(discovery.Hit{Kind: kindXY, Sample: "D1"}, []byte(xyFile))
	if err != nil {
		t.Fatal(err)
	}
	recB, err := m.Parse(discovery.Hit{Kind: kindXY, Sample: "D2"},
		[]byte("sample\tpredicted_sex\tratio_chry_chrx\nD2\tfemale\t0.0031\n"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := m.Aggregate(config.Defaults(), append(recA, recB...))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	rows := res.Tables[0].Rows
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Sample != "D1" || rows[1].Sample != "D2" {
		t.Errorf("rows = %s, %s", rows[0].Sample, rows[1].Sample)
	}
	if rows[1].Cells["predicted_sex"].Value.Str != "F" {
		t.Errorf("D2 consensus = %q, want F", rows[1].Cells["predicted_sex"].Value.Str)
	}
}
