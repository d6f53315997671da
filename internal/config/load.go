package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = ".labqc.yml"

// Load reads and parses a config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Discover walks up the directory tree from startDir looking for a
// .labqc.yml config file. It stops searching when it encounters a .git
// directory (the repository root) or reaches the filesystem root.
// Returns the path to the config file, or "" if none was found.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		// A .git directory marks the repo root; don't search above it.
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return "", nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Merge merges a loaded config on top of defaults. Scalar options from
// the loaded config override the defaults when set; list options come
// from the loaded config only when non-empty.
func Merge(defaults, loaded *Config) *Config {
	merged := *defaults
	if loaded == nil {
		return &merged
	}

	if len(loaded.RunModules) > 0 {
		merged.RunModules = loaded.RunModules
	}
	if len(loaded.SampleNamesIgnore) > 0 {
		merged.SampleNamesIgnore = loaded.SampleNamesIgnore
	}
	if len(loaded.ExtraFnCleanTrim) > 0 {
		merged.ExtraFnCleanTrim = loaded.ExtraFnCleanTrim
	}

	if len(loaded.Coverage.GeneralStatsCoverage) > 0 {
		merged.Coverage.GeneralStatsCoverage = loaded.Coverage.GeneralStatsCoverage
	}
	if loaded.Coverage.GeneralStatsCoverageHidden != nil {
		merged.Coverage.GeneralStatsCoverageHidden = loaded.Coverage.GeneralStatsCoverageHidden
	}
	if loaded.Coverage.PassFraction != nil {
		merged.Coverage.PassFraction = loaded.Coverage.PassFraction
	}
	if len(loaded.Coverage.Panels) > 0 {
		merged.Coverage.Panels = loaded.Coverage.Panels
	}

	if loaded.VarCount.SangerThreshold != nil {
		merged.VarCount.SangerThreshold = loaded.VarCount.SangerThreshold
	}

	if loaded.MSISensorCoverageThreshold != nil {
		merged.MSISensorCoverageThreshold = loaded.MSISensorCoverageThreshold
	}
	if loaded.MSISensorMinSites != nil {
		merged.MSISensorMinSites = loaded.MSISensorMinSites
	}
	if loaded.MSIHighThreshold != nil {
		merged.MSIHighThreshold = loaded.MSIHighThreshold
	}

	merged.CustomPlots = loaded.CustomPlots
	return &merged
}
