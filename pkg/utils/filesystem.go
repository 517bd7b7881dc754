// Package utils provides glob matching and filesystem helpers
package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideRoot is returned when a delete pattern would reach outside the
// project root or remove the root itself
var ErrOutsideRoot = errors.New("pattern resolves outside the project root")

// DeleteOptions controls DeletePatterns
type DeleteOptions struct {
	// Root is the directory patterns are resolved against
	Root string
	// DryRun reports what would be deleted without touching the disk
	DryRun bool
}

// DeletePatterns removes every path matched by a positive glob unless it is
// matched by one of the "!"-prefixed globs. A negated glob without a slash
// matches the base name at any depth. Wildcards never match names starting
// with a dot. Excluding a directory keeps only the directory entry: files
// below it that a positive glob matches are still removed, so
// ["build/**", "!build/icons"] empties build/icons. It returns the removed
// paths relative to the root, slash separated and sorted.
func DeletePatterns(patterns []string, opts DeleteOptions) ([]string, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	var includes, excludes, baseExcludes []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			p = NormalizePattern(strings.TrimPrefix(p, "!"))
			if strings.Contains(p, "/") {
				excludes = append(excludes, p)
			} else {
				baseExcludes = append(baseExcludes, p)
			}
			continue
		}
		includes = append(includes, NormalizePattern(p))
	}

	excluded, err := NewExactMatcher(excludes)
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion pattern: %w", err)
	}
	excludedBase, err := NewExactMatcher(baseExcludes)
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion pattern: %w", err)
	}
	isExcluded := func(rel string) bool {
		return excluded.Match(rel) || excludedBase.Match(pathBase(rel))
	}

	found := make(map[string]struct{})
	for _, pattern := range includes {
		matches, err := expandGlob(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, rel := range matches {
			if !isExcluded(rel) {
				found[rel] = struct{}{}
			}
		}
	}

	deleted := make([]string, 0, len(found))
	for rel := range found {
		deleted = append(deleted, rel)
	}
	sort.Strings(deleted)
	deleted = dropNested(deleted)

	if opts.DryRun {
		return deleted, nil
	}
	for _, rel := range deleted {
		if err := os.RemoveAll(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", rel, err)
		}
	}
	return deleted, nil
}

// expandGlob resolves pattern against root and returns matching paths
// relative to root. Matched directories are descended into as long as the
// pattern can reach below them.
func expandGlob(root, pattern string) ([]string, error) {
	if pattern == "" || pattern == "." || strings.HasPrefix(pattern, "/") || pattern == ".." ||
		strings.HasPrefix(pattern, "../") || strings.Contains(pattern, "/../") {
		return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, pattern)
	}

	if !IsGlobPattern(pattern) {
		if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(pattern))); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		return []string{pattern}, nil
	}

	matcher, err := NewExactMatcher([]string{pattern})
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	base := StaticPrefix(pattern)
	maxDepth := -1
	if !strings.Contains(pattern, "**") {
		maxDepth = strings.Count(pattern, "/") + 1
	}

	start := filepath.Join(root, filepath.FromSlash(base))
	if _, err := os.Stat(start); os.IsNotExist(err) {
		return nil, nil
	}

	var matches []string
	err = filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == start {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher.Match(rel) {
			matches = append(matches, rel)
		}
		if d.IsDir() && maxDepth > 0 && strings.Count(rel, "/")+1 >= maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand %q: %w", pattern, err)
	}
	return matches, nil
}

// StaticPrefix returns the leading path segments of pattern that contain no
// wildcards. The last segment is never included, so "src/main/index.js"
// yields "src/main".
func StaticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var static []string
	for _, seg := range segments {
		if IsGlobPattern(seg) {
			break
		}
		static = append(static, seg)
	}
	if len(static) == len(segments) {
		static = static[:len(static)-1]
	}
	return strings.Join(static, "/")
}

// dropNested removes entries whose ancestor is also in the list
func dropNested(sorted []string) []string {
	kept := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, p := range sorted {
		nested := false
		for dir := p; strings.Contains(dir, "/"); {
			dir = dir[:strings.LastIndex(dir, "/")]
			if _, ok := kept[dir]; ok {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		kept[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func pathBase(rel string) string {
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		return rel[i+1:]
	}
	return rel
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirectoryExists checks if a directory exists
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// WriteFileAtomic writes data through a temp file and a rename
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempFile, path)
}
