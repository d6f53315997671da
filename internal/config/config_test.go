package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if diff := cmp.Diff([]int{20}, cfg.Coverage.GeneralStatsCoverage); diff != "" {
		t.Errorf("GeneralStatsCoverage mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{30}, cfg.Coverage.GeneralStatsCoverageHidden); diff != "" {
		t.Errorf("GeneralStatsCoverageHidden mismatch (-want +got):\n%s", diff)
	}
	if cfg.Coverage.PassFraction == nil || *cfg.Coverage.PassFraction != 90 {
		t.Errorf("PassFraction = %v, want 90", cfg.Coverage.PassFraction)
	}
	if cfg.VarCount.SangerThreshold != nil {
		t.Errorf("SangerThreshold has a default; it must not")
	}
	if cfg.MSIHighThreshold == nil || *cfg.MSIHighThreshold != 20 {
		t.Errorf("MSIHighThreshold = %v, want 20", cfg.MSIHighThreshold)
	}
}

func TestLoadAndMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".labqc.yml")
	content := `run_modules:
  - coverage
  - varcount
coverage_config:
  general_stats_coverage: [10, 20]
  pass_fraction: 95
  panels:
    - name: hereditary
      regions: [BRCA1, BRCA2]
MSH2_hotspot_varcount_config:
  sanger_threshold: 10
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := Merge(Defaults(), loaded)

	if diff := cmp.Diff([]string{"coverage", "varcount"}, cfg.RunModules); diff != "" {
		t.Errorf("RunModules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{10, 20}, cfg.Coverage.GeneralStatsCoverage); diff != "" {
		t.Errorf("GeneralStatsCoverage mismatch (-want +got):\n%s", diff)
	}
	// Unset keys keep their defaults.
	if diff := cmp.Diff([]int{30}, cfg.Coverage.GeneralStatsCoverageHidden); diff != "" {
		t.Errorf("GeneralStatsCoverageHidden mismatch (-want +got):\n%s", diff)
	}
	if cfg.Coverage.PassFraction == nil || *cfg.Coverage.PassFraction != 95 {
		t.Errorf("PassFraction = %v, want 95", cfg.Coverage.PassFraction)
	}
	if cfg.VarCount.SangerThreshold == nil || *cfg.VarCount.SangerThreshold != 10 {
		t.Errorf("SangerThreshold = %v, want 10", cfg.VarCount.SangerThreshold)
	}
	if len(cfg.Coverage.Panels) != 1 || cfg.Coverage.Panels[0].Name != "hereditary" {
		t.Errorf("Panels = %+v", cfg.Coverage.Panels)
	}
}

func TestMergeNilLoaded(t *testing.T) {
	cfg := Merge(Defaults(), nil)
	if cfg.Coverage.PassFraction == nil || *cfg.Coverage.PassFraction != 90 {
		t.Errorf("PassFraction = %v, want default 90", cfg.Coverage.PassFraction)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".labqc.yml"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if found != filepath.Join(root, ".labqc.yml") {
		t.Errorf("Discover = %q", found)
	}
}

func TestDiscoverStopsAtGitRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".labqc.yml"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	repo := filepath.Join(root, "repo")
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	found, err := Discover(repo)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if found != "" {
		t.Errorf("Discover = %q, want no config above the repo root", found)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.RunModules = []string{"coverage", "bogus"}
	cfg.Coverage.GeneralStatsCoverageHidden = []int{}
	cfg.Coverage.Panels = []PanelConfig{
		{Name: "p", Regions: []string{"BRCA1"}},
		{Name: "p", Regions: []string{"BRCA2"}},
		{Name: "", Regions: []string{"TP53"}},
		{Name: "empty"},
	}

	warnings := Validate(cfg, []string{"coverage", "sexpred"})
	if len(warnings) != 5 {
		t.Fatalf("got %d warnings, want 5: %v", len(warnings), warnings)
	}
}

func TestValidateCleanConfig(t *testing.T) {
	warnings := Validate(Defaults(), []string{"coverage"})
	if len(warnings) != 0 {
		t.Errorf("got warnings for the default config: %v", warnings)
	}
}

func TestModuleEnabled(t *testing.T) {
	cfg := Defaults()
	if !cfg.ModuleEnabled("coverage") {
		t.Error("empty run_modules must enable every module")
	}

	cfg.RunModules = []string{"sexpred"}
	if cfg.ModuleEnabled("coverage") {
		t.Error("coverage enabled despite run_modules restriction")
	}
	if !cfg.ModuleEnabled("sexpred") {
		t.Error("sexpred disabled despite being listed")
	}
}
