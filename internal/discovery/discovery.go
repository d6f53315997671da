// Package discovery classifies candidate input files against
// module-specific filename patterns and derives canonical sample keys.
package discovery

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"

	"github.com/cmgg/labqc/internal/qc"
)

// Pattern is one entry of a module's ordered (pattern, kind) dispatch
// table. Patterns are evaluated in declaration order and the first
// match wins, so double-matches resolve deterministically.
type Pattern struct {
	// Glob matches against the file's base name (doublestar syntax).
	Glob string

	// Kind names the file kind for the module's parser dispatch.
	Kind string

	// Trim lists suffixes stripped from the base name to derive the
	// sample key. The first matching suffix is removed; the file
	// extension is dropped first when no suffix matches.
	Trim []string
}

// Options carries the host naming configuration applied to every
// derived sample key.
type Options struct {
	// IgnoreGlobs excludes samples whose derived key matches any
	// pattern (the sample_names_ignore config key).
	IgnoreGlobs []string

	// ExtraTrim lists additional suffixes stripped from sample keys
	// (the extra_fn_clean_trim config key).
	ExtraTrim []string
}

// Hit is one recognized input file: its path, the matched file kind,
// and the derived sample key.
type Hit struct {
	Path   string
	Kind   string
	Sample qc.SampleKey
}

// Scan classifies each candidate path against the pattern table.
// Files matching no pattern are skipped silently: a report working
// directory legitimately contains files unrelated to a given module.
// Files whose derived sample key matches an ignore glob are excluded
// entirely.
func Scan(paths []string, patterns []Pattern, opts Options) []Hit {
	ignore := compileIgnores(opts.IgnoreGlobs)

	var hits []Hit
	for _, path := range paths {
		p, ok := match(path, patterns)
		if !ok {
			continue
		}
		sample := SampleName(path, p, opts)
		if sample == "" || isIgnored(ignore, string(sample)) {
			continue
		}
		hits = append(hits, Hit{Path: path, Kind: p.Kind, Sample: sample})
	}
	return hits
}

// match returns the first pattern whose glob matches the base name.
func match(path string, patterns []Pattern) (Pattern, bool) {
	base := filepath.Base(path)
	for _, p := range patterns {
		matched, err := doublestar.Match(p.Glob, base)
		if err == nil && matched {
			return p, true
		}
	}
	return Pattern{}, false
}

// SampleName derives the canonical sample key for a file matched by
// pattern p: the matched trim suffix is stripped (falling back to the
// file extension), then any configured extra trim patterns.
func SampleName(path string, p Pattern, opts Options) qc.SampleKey {
	name := filepath.Base(path)

	trimmed := false
	for _, suffix := range p.Trim {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			trimmed = true
			break
		}
	}
	if !trimmed {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	for _, suffix := range opts.ExtraTrim {
		name = strings.TrimSuffix(name, suffix)
	}

	return qc.SampleKey(name)
}

// compileIgnores compiles the ignore globs, skipping invalid patterns.
func compileIgnores(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

// isIgnored reports whether the sample name matches any ignore glob.
func isIgnored(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
