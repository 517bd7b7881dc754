package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// PatternMatcher handles glob pattern matching
type PatternMatcher struct {
	patterns []string
	regexps  []*regexp.Regexp
}

// NewPatternMatcher creates a matcher that also accepts the common
// variations of each pattern (see ExpandPattern)
func NewPatternMatcher(patterns []string) (*PatternMatcher, error) {
	var expanded []string
	for _, pattern := range patterns {
		expanded = append(expanded, ExpandPattern(pattern)...)
	}
	return newMatcher(expanded)
}

// NewExactMatcher creates a matcher for the patterns exactly as written
func NewExactMatcher(patterns []string) (*PatternMatcher, error) {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		normalized = append(normalized, NormalizePattern(p))
	}
	return newMatcher(normalized)
}

func newMatcher(patterns []string) (*PatternMatcher, error) {
	pm := &PatternMatcher{
		patterns: patterns,
		regexps:  make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, pattern := range patterns {
		regex, err := globToRegex(pattern)
		if err != nil {
			return nil, err
		}
		pm.regexps = append(pm.regexps, regex)
	}
	return pm, nil
}

// Match checks if a path matches any pattern
func (pm *PatternMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, regex := range pm.regexps {
		if regex.MatchString(path) {
			return true
		}
	}
	return false
}

// Patterns returns the patterns the matcher was compiled from
func (pm *PatternMatcher) Patterns() []string {
	return append([]string(nil), pm.patterns...)
}

// globToRegex converts a glob pattern to a regular expression
func globToRegex(pattern string) (*regexp.Regexp, error) {
	pattern = filepath.ToSlash(pattern)

	var regex strings.Builder
	regex.WriteString("^")

	i := 0
	for i < len(pattern) {
		switch pattern[i] {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// ** crosses directory boundaries; **/ may also match nothing
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					regex.WriteString("(?:.*/)?")
					i += 3
				} else {
					regex.WriteString(".*")
					i += 2
				}
			} else {
				regex.WriteString("[^/]*")
				i++
			}
		case '?':
			regex.WriteString("[^/]")
			i++
		case '[':
			closing := strings.IndexByte(pattern[i+1:], ']')
			if closing < 0 {
				// Unclosed bracket, treat as literal
				regex.WriteString("\\[")
				i++
				continue
			}
			class := pattern[i+1 : i+1+closing]
			if strings.HasPrefix(class, "!") {
				regex.WriteString("[^")
				class = class[1:]
			} else {
				regex.WriteString("[")
			}
			regex.WriteString(class)
			regex.WriteByte(']')
			i += closing + 2
		case '\\':
			if i+1 < len(pattern) {
				regex.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				regex.WriteString("\\\\")
				i++
			}
		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			regex.WriteByte('\\')
			regex.WriteByte(pattern[i])
			i++
		default:
			regex.WriteByte(pattern[i])
			i++
		}
	}

	regex.WriteString("$")
	return regexp.Compile(regex.String())
}

// IsGlobPattern checks if a string contains glob wildcards
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// NormalizePattern converts separators, drops a leading ./ and a trailing /
func NormalizePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	pattern = strings.TrimPrefix(pattern, "./")
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	return pattern
}

// ExpandPattern expands a pattern to include common variations
func ExpandPattern(pattern string) []string {
	pattern = NormalizePattern(pattern)
	patterns := []string{pattern}

	// A bare directory name also covers its contents
	if !strings.Contains(pattern, "*") && !strings.Contains(pattern, ".") {
		patterns = append(patterns, pattern+"/**")
	} else if !strings.HasPrefix(pattern, "**") && !strings.HasPrefix(pattern, "/") {
		patterns = append(patterns, "**/"+pattern)
	}

	return patterns
}

// ExclusionMatcher handles exclusion patterns
type ExclusionMatcher struct {
	matcher *PatternMatcher
}

// NewExclusionMatcher creates a matcher where bare names exclude the
// entry of that name, and everything below it, at any depth
func NewExclusionMatcher(patterns []string) (*ExclusionMatcher, error) {
	var all []string
	for _, pattern := range patterns {
		if !strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
			all = append(all, "**/"+pattern, "**/"+pattern+"/**")
			continue
		}
		all = append(all, pattern)
	}

	matcher, err := NewPatternMatcher(all)
	if err != nil {
		return nil, err
	}
	return &ExclusionMatcher{matcher: matcher}, nil
}

// IsExcluded checks if a path should be excluded
func (em *ExclusionMatcher) IsExcluded(path string) bool {
	return em.matcher.Match(path)
}

// GetDefaultExclusions returns the paths ignored when watching a JS project
func GetDefaultExclusions() []string {
	return []string{
		".git",
		"node_modules",
		"dist",
		"build",
		"coverage",
		".cache",
		".letsbuild",
		".idea",
		".vscode",
		".DS_Store",
		"*.log",
		"*.swp",
		"*~",
	}
}
