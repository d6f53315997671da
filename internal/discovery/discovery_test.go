package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cmgg/labqc/internal/qc"
)

var coveragePatterns = []Pattern{
	{Glob: "*.mosdepth.region.dist.txt", Kind: "region_dist", Trim: []string{".mosdepth.region.dist.txt"}},
	{Glob: "*.mosdepth.global.dist.txt", Kind: "global_dist", Trim: []string{".mosdepth.global.dist.txt"}},
}

func TestScanClassifiesByFirstMatch(t *testing.T) {
	paths := []string{
		"out/D1234.mosdepth.region.dist.txt",
		"out/D1234.mosdepth.global.dist.txt",
		"out/D1234.bam",
		"out/notes.txt",
	}

	hits := Scan(paths, coveragePatterns, Options{})

	want := []Hit{
		{Path: "out/D1234.mosdepth.region.dist.txt", Kind: "region_dist", Sample: "D1234"},
		{Path: "out/D1234.mosdepth.global.dist.txt", Kind: "global_dist", Sample: "D1234"},
	}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Errorf("Scan mismatch (-want +got):\n%s", diff)
	}
}

func TestScanFirstPatternWins(t *testing.T) {
	// Both globs match; declaration order must decide.
	patterns := []Pattern{
		{Glob: "*_summary_msi*", Kind: "summary", Trim: []string{"_summary_msi.txt"}},
		{Glob: "*msi*", Kind: "broad"},
	}

	hits := Scan([]string{"D1_summary_msi.txt"}, patterns, Options{})
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Kind != "summary" {
		t.Errorf("Kind = %q, want summary", hits[0].Kind)
	}
}

func TestScanIgnoresSamples(t *testing.T) {
	opts := Options{IgnoreGlobs: []string{"NTC*"}}
	paths := []string{
		"D1.mosdepth.region.dist.txt",
		"NTC001.mosdepth.region.dist.txt",
	}

	hits := Scan(paths, coveragePatterns, opts)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Sample != "D1" {
		t.Errorf("Sample = %q, want D1", hits[0].Sample)
	}
}

func TestSampleNameTrimFallsBackToExtension(t *testing.T) {
	p := Pattern{Glob: "*_xy.tsv", Kind: "xy", Trim: []string{"_xy.tsv"}}

	cases := []struct {
		path string
		opts Options
		want qc.SampleKey
	}{
		{"run/D1234_xy.tsv", Options{}, "D1234"},
		{"run/D1234.other", Options{}, "D1234"},
		{"run/D1234_dedup_xy.tsv", Options{ExtraTrim: []string{"_dedup"}}, "D1234"},
	}
	for _, c := range cases {
		if got := SampleName(c.path, p, c.opts); got != c.want {
			t.Errorf("SampleName(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestSamplesFromDifferentFilesDoNotCollide(t *testing.T) {
	paths := []string{
		"D1.mosdepth.region.dist.txt",
		"D2.mosdepth.region.dist.txt",
	}
	hits := Scan(paths, coveragePatterns, Options{})
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Sample == hits[1].Sample {
		t.Errorf("distinct files derived the same sample key %q", hits[0].Sample)
	}
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.txt", "sub/b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ResolveInputs([]string{dir})
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("got %d files, want 2: %v", len(files), files)
	}

	// The same file given twice resolves once.
	path := filepath.Join(dir, "a.txt")
	files, err = ResolveInputs([]string{path, path})
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("got %d files, want 1: %v", len(files), files)
	}

	if _, err := ResolveInputs([]string{filepath.Join(dir, "missing.txt")}); err == nil {
		t.Error("expected error for nonexistent path")
	}
}
