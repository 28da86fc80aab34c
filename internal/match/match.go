// Package match resolves directory + pattern sets to file path lists.
package match

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Files returns the deduplicated, sorted absolute paths under base/segments
// whose base names match any of the glob patterns. With recursive unset only
// the exact directory is scanned; with it set, all subdirectories are too.
// Zero matches is not an error here; callers decide whether the rule that
// produced the pattern set was required.
func Files(base string, segments []string, patterns []string, recursive bool) ([]string, error) {
	dir := filepath.Join(append([]string{base}, segments...)...)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		// a missing search directory is a zero-match outcome, not a failure
		return nil, nil
	}

	seen := make(map[string]bool)
	collect := func(path string) error {
		name := filepath.Base(path)
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, name)
			if err != nil {
				return err
			}
			if ok {
				abs, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				seen[abs] = true
				break
			}
		}
		return nil
	}

	if recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			return collect(path)
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := collect(filepath.Join(dir, entry.Name())); err != nil {
				return nil, err
			}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// Expand resolves a source spec to concrete files: a glob pattern expands to
// its matches, a directory to its (non-recursive) regular files, and a plain
// file to itself. Missing plain files are returned as-is for the caller to
// report.
func Expand(spec string) ([]string, error) {
	if hasGlobMeta(spec) {
		matches, err := filepath.Glob(spec)
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		return matches, nil
	}
	info, err := os.Stat(spec)
	if err == nil && info.IsDir() {
		entries, err := os.ReadDir(spec)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, entry := range entries {
			if !entry.IsDir() {
				files = append(files, filepath.Join(spec, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}
	return []string{spec}, nil
}

func hasGlobMeta(s string) bool {
	for _, c := range s {
		if c == '*' || c == '?' || c == '[' {
			return true
		}
	}
	return false
}
