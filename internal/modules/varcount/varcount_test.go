package varcount

import (
	"errors"
	"testing"

	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/discovery"
	"github.com/cmgg/labqc/internal/module"
	"github.com/cmgg/labqc/internal/qc"
)

const countsFile = "## varcount\n" +
	"# region chr2:47414420\n" +
	"pos msh2_wt c942+3A>T c942del c942dup\n" +
	"47414420 90 10 0 5\n"

func parseCounts(t *testing.T, sample, content string) []*qc.MetricRecord {
	t.Helper()
	m := &Module{}
	hit := discovery.Hit{Kind: "counts", Sample: qc.SampleKey(sample)}
	records, err := m.Parse(hit, []byte(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return records
}

func configWithThreshold(v float64) *config.Config {
	cfg := config.Defaults()
	cfg.VarCount.SangerThreshold = &v
	return cfg
}

func TestParseReadsHeaderAndValueLines(t *testing.T) {
	records := parseCounts(t, "D1", countsFile)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if v, _ := rec.Get("msh2_wt"); v.Num != 90 {
		t.Errorf("msh2_wt = %v, want 90", v.Num)
	}
	if v, _ := rec.Get("c942+3A>T"); v.Num != 10 {
		t.Errorf("c942+3A>T = %v, want 10", v.Num)
	}
}

func TestParseRejectsBadFiles(t *testing.T) {
	m := &Module{}
	hit := discovery.Hit{Kind: "counts", Sample: "D1"}

	if _, err := m.Parse(hit, []byte("too\nshort\n")); err == nil {
		t.Error("expected error for a truncated file")
	}
	bad := "#\n#\npos msh2_wt c942del\n47414420 ninety 0\n"
	if _, err := m.Parse(hit, []byte(bad)); err == nil {
		t.Error("expected error for a non-numeric count")
	}
}

func TestAggregateRequiresSangerThreshold(t *testing.T) {
	m := &Module{}
	records := parseCounts(t, "D1", countsFile)

	_, err := m.Aggregate(config.Defaults(), records)
	if !errors.Is(err, module.ErrMissingConfig) {
		t.Fatalf("err = %v, want ErrMissingConfig", err)
	}
}

func TestAggregateFrequencies(t *testing.T) {
	m := &Module{}
	records := parseCounts(t, "D1", countsFile)

	res, err := m.Aggregate(configWithThreshold(10), records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(res.Tables))
	}
	table := res.Tables[0]
	if table.ID != "msh2_hotspot_varcount" {
		t.Errorf("table ID = %q", table.ID)
	}
	if !table.NoViolin || !table.SortRows {
		t.Errorf("table tweaks: no_violin=%v sort_rows=%v", table.NoViolin, table.SortRows)
	}

	row := table.Rows[0]
	if c := row.Cells["msh2_wt"]; c.Value.Num != 90 {
		t.Errorf("wt cell = %v, want the raw count 90", c.Value.Num)
	}

	// 10 alt / (90 wt + 10 alt) = 10.00%: at the threshold, flagged.
	if c := row.Cells["c942+3A>T"]; c.Value.Str != "10.00(10)" || c.Status != qc.Fail {
		t.Errorf("c942+3A>T = %q(%s), want 10.00(10)(fail)", c.Value.Str, c.Status)
	}
	if c := row.Cells["c942del"]; c.Value.Str != "0.00(0)" || c.Status != qc.Pass {
		t.Errorf("c942del = %q(%s), want 0.00(0)(pass)", c.Value.Str, c.Status)
	}
	// 5 / 95 rounds to two decimals.
	if c := row.Cells["c942dup"]; c.Value.Str != "5.26(5)" || c.Status != qc.Pass {
		t.Errorf("c942dup = %q(%s), want 5.26(5)(pass)", c.Value.Str, c.Status)
	}
}

func TestAggregateColumnsAreUnionAcrossSamples(t *testing.T) {
	m := &Module{}
	records := parseCounts(t, "D1", countsFile)
	other := "#\n#\npos msh2_wt c942novel\n47414420 50 50\n"
	records = append(records, parseCounts(t, "D2", other)...)

	res, err := m.Aggregate(configWithThreshold(10), records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	table := res.Tables[0]

	seen := make(map[string]bool)
	for _, h := range table.Headers {
		seen[h.ID] = true
	}
	for _, want := range []string{"msh2_wt", "c942+3A>T", "c942del", "c942dup", "c942novel"} {
		if !seen[want] {
			t.Errorf("missing column %q", want)
		}
	}

	// D1 never reported c942novel; its cell must be explicit, not absent.
	d1 := table.Rows[0]
	if c := d1.Cells["c942novel"]; c.Value.Str != "N/A" || c.Status != qc.Undetermined {
		t.Errorf("D1 c942novel = %q(%s), want N/A(undetermined)", c.Value.Str, c.Status)
	}
	// D2: 50/(50+50) = 50% is over the threshold.
	d2 := table.Rows[1]
	if c := d2.Cells["c942novel"]; c.Value.Str != "50.00(50)" || c.Status != qc.Fail {
		t.Errorf("D2 c942novel = %q(%s), want 50.00(50)(fail)", c.Value.Str, c.Status)
	}
}
