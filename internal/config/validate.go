package config

import "fmt"

// Validate checks the merged configuration once at startup and returns
// human-readable warnings for non-fatal inconsistencies. Warnings are
// surfaced in the generated report and the log; the run continues with
// best-effort defaults. knownModules lists the registered module IDs.
func Validate(cfg *Config, knownModules []string) []string {
	var warnings []string

	known := make(map[string]bool, len(knownModules))
	for _, id := range knownModules {
		known[id] = true
	}
	for _, id := range cfg.RunModules {
		if !known[id] {
			warnings = append(warnings, fmt.Sprintf(
				"run_modules references unknown module %q", id))
		}
	}

	// An empty hidden-threshold set would leave every coverage column
	// expanded in the summary view with nothing flagged as hidden.
	// That is a configuration error to surface, not silently default.
	if cfg.ModuleEnabled("coverage") && len(cfg.Coverage.GeneralStatsCoverageHidden) == 0 {
		warnings = append(warnings,
			"coverage_config.general_stats_coverage_hidden is empty; "+
				"all coverage columns will show in the general statistics table")
	}

	seen := make(map[string]bool)
	for _, p := range cfg.Coverage.Panels {
		if p.Name == "" {
			warnings = append(warnings, "coverage_config.panels entry without a name")
			continue
		}
		if seen[p.Name] {
			warnings = append(warnings, fmt.Sprintf(
				"coverage_config.panels defines panel %q more than once", p.Name))
		}
		seen[p.Name] = true
		if len(p.Regions) == 0 {
			warnings = append(warnings, fmt.Sprintf(
				"panel %q lists no regions", p.Name))
		}
	}

	return warnings
}
