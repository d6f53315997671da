// Package config defines the typed configuration surface consumed by
// every pipeline stage. Every recognized option is enumerated here with
// a default and validated once at startup; stages never probe loosely
// typed maps at access time.
package config

// Config is the top-level configuration.
type Config struct {
	// RunModules selects which QC modules activate. Empty means all
	// registered modules.
	RunModules []string `yaml:"run_modules"`

	// SampleNamesIgnore lists glob patterns; samples whose derived
	// key matches any pattern are excluded entirely.
	SampleNamesIgnore []string `yaml:"sample_names_ignore"`

	// ExtraFnCleanTrim lists additional suffixes stripped from
	// derived sample keys.
	ExtraFnCleanTrim []string `yaml:"extra_fn_clean_trim"`

	Coverage CoverageConfig `yaml:"coverage_config"`
	VarCount VarCountConfig `yaml:"MSH2_hotspot_varcount_config"`

	// MSISensorCoverageThreshold excludes per-locus rows whose read
	// coverage falls below it.
	MSISensorCoverageThreshold *float64 `yaml:"msi_sensor_pro_coverage_threshold"`

	// MSISensorMinSites is the minimum number of evaluated sites for
	// an MSI score to be classified at all.
	MSISensorMinSites *int `yaml:"msi_sensor_pro_min_sites"`

	// MSIHighThreshold is the percent-unstable-sites boundary at or
	// above which a sample is flagged MSI-high.
	MSIHighThreshold *float64 `yaml:"msi_high_threshold"`

	CustomPlots CustomPlotConfig `yaml:"custom_plot_config"`
}

// CoverageConfig configures the coverage module.
type CoverageConfig struct {
	// GeneralStatsCoverage lists the depth thresholds shown in the
	// general statistics table.
	GeneralStatsCoverage []int `yaml:"general_stats_coverage"`

	// GeneralStatsCoverageHidden lists depth thresholds that are
	// computed and classified but hidden when the report loads.
	// Hiding is presentation-only, never a skip-computation directive.
	GeneralStatsCoverageHidden []int `yaml:"general_stats_coverage_hidden"`

	// PassFraction is the percent-bases boundary below which a depth
	// column fails.
	PassFraction *float64 `yaml:"pass_fraction"`

	// Panels defines the genome panels merged against per-region
	// records for the detailed table.
	Panels []PanelConfig `yaml:"panels"`
}

// PanelConfig is one named genome panel.
type PanelConfig struct {
	Name    string   `yaml:"name"`
	Regions []string `yaml:"regions"`
	Depths  []int    `yaml:"depths"`
}

// VarCountConfig configures the MSH2 hotspot variant-count module.
type VarCountConfig struct {
	// SangerThreshold is the variant frequency (percent) at or above
	// which a sample requires confirmatory Sanger sequencing. It has
	// no default: the varcount module refuses to run without it.
	SangerThreshold *float64 `yaml:"sanger_threshold"`
}

// CustomPlotConfig carries presentation hints passed through to the
// host renderer.
type CustomPlotConfig struct {
	GeneralStatsTable TableTweaks `yaml:"general_stats_table"`
}

// TableTweaks holds per-table rendering overrides.
type TableTweaks struct {
	// NoViolin disables the automatic violin-plot fallback the host
	// applies to large tables.
	NoViolin bool `yaml:"no_violin"`
}

// Defaults returns a Config with every option at its default value.
func Defaults() *Config {
	passFraction := 90.0
	msiCov := 20.0
	msiMinSites := 20
	msiHigh := 20.0
	return &Config{
		Coverage: CoverageConfig{
			GeneralStatsCoverage:       []int{20},
			GeneralStatsCoverageHidden: []int{30},
			PassFraction:               &passFraction,
		},
		MSISensorCoverageThreshold: &msiCov,
		MSISensorMinSites:          &msiMinSites,
		MSIHighThreshold:           &msiHigh,
	}
}

// ModuleEnabled reports whether a module ID is selected by run_modules.
func (c *Config) ModuleEnabled(id string) bool {
	if len(c.RunModules) == 0 {
		return true
	}
	for _, m := range c.RunModules {
		if m == id {
			return true
		}
	}
	return false
}
