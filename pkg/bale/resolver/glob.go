package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// expandGlob expands a glob pattern (supporting **) into matching file
// paths, sorted alphabetically. Filesystem iteration order never leaks
// through: resolution is deterministic across platforms.
func expandGlob(fs afero.Fs, pattern string) ([]string, error) {
	hasRecursive := strings.Contains(pattern, "**")

	// The walk root: "." for top-level patterns, never "".
	baseDir := filepath.Dir(pattern)
	if hasRecursive {
		parts := strings.Split(pattern, "**")
		baseDir = filepath.Dir(parts[0])
	}

	exists, err := afero.DirExists(fs, baseDir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil // No matches, not an error
	}

	var matches []string
	err = afero.Walk(fs, baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		if hasRecursive {
			if matchesGlobPattern(path, pattern) {
				matches = append(matches, path)
			}
			return nil
		}

		// A non-recursive pattern only matches within its own
		// directory, including the top level.
		if filepath.Dir(path) != filepath.Dir(pattern) {
			return nil
		}
		matched, err := filepath.Match(filepath.Base(pattern), filepath.Base(path))
		if err != nil {
			return err
		}
		if matched {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

// MatchGlob reports whether a path matches a glob pattern, with **
// support. Watch mode uses it to map newly created files onto the
// bundles whose globs would pick them up.
func MatchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchesGlobPattern(path, pattern)
	}
	matched, err := filepath.Match(pattern, path)
	return err == nil && matched
}

// matchesGlobPattern checks if a path matches a pattern with ** support.
func matchesGlobPattern(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)
	path = filepath.ToSlash(path)

	return matchGlobParts(strings.Split(path, "/"), strings.Split(pattern, "/"), 0, 0)
}

// matchGlobParts recursively matches path parts against pattern parts.
func matchGlobParts(pathParts, patternParts []string, pathIdx, patternIdx int) bool {
	if patternIdx >= len(patternParts) {
		return pathIdx >= len(pathParts)
	}

	if pathIdx >= len(pathParts) {
		for i := patternIdx; i < len(patternParts); i++ {
			if patternParts[i] != "**" {
				return false
			}
		}
		return true
	}

	if patternParts[patternIdx] == "**" {
		if matchGlobParts(pathParts, patternParts, pathIdx, patternIdx+1) {
			return true
		}
		return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx)
	}

	matched, err := filepath.Match(patternParts[patternIdx], pathParts[pathIdx])
	if err != nil || !matched {
		return false
	}

	return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx+1)
}
