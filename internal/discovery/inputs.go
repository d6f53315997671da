package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// hasGlobChars returns true if the string contains glob meta-characters.
func hasGlobChars(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// ResolveInputs takes positional arguments and returns the deduplicated,
// sorted working set of candidate files. It supports individual files,
// directories (walked recursively), and doublestar glob patterns.
// Returns an error for nonexistent paths that are not glob patterns.
// No filtering happens here: classification against module patterns is
// Scan's job, and unmatched files are skipped silently there.
func ResolveInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	addFile := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if !seen[abs] {
			seen[abs] = true
			result = append(result, path)
		}
	}

	for _, arg := range args {
		if err := resolveArg(arg, addFile); err != nil {
			return nil, err
		}
	}

	sort.Strings(result)
	return result, nil
}

// resolveArg resolves a single argument (glob, directory, or file) and
// calls addFile for each candidate found.
func resolveArg(arg string, addFile func(string)) error {
	if hasGlobChars(arg) {
		return resolveGlob(arg, addFile)
	}

	info, err := os.Stat(arg)
	if err != nil {
		return fmt.Errorf("cannot access %q: %w", arg, err)
	}

	if info.IsDir() {
		return addDirFiles(arg, addFile)
	}

	addFile(arg)
	return nil
}

// resolveGlob expands a doublestar pattern and adds matching files.
func resolveGlob(pattern string, addFile func(string)) error {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.IsDir() {
			if err := addDirFiles(m, addFile); err != nil {
				return err
			}
		} else {
			addFile(m)
		}
	}
	return nil
}

// addDirFiles walks a directory and adds all regular files found.
func addDirFiles(dir string, addFile func(string)) error {
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			addFile(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directory %q: %w", dir, err)
	}
	return nil
}
