package detect

import (
	"errors"
	"fmt"
	"strings"

	gitignore "github.com/denormal/go-gitignore"
)

// ErrInvalidPattern indicates a malformed wildmatch pattern.
var ErrInvalidPattern = errors.New("invalid pattern")

// PatternError reports the pattern that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrInvalidPattern, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() []error {
	return []error{ErrInvalidPattern, e.Err}
}

// PathSpec is a compiled, ordered list of gitignore-style patterns.
//
// A path matches when the last pattern that applies to it is not negated.
// A pattern applies to a path when it matches the path itself or one of the
// path's parent directories, so "docs/" covers every file below docs.
type PathSpec struct {
	patterns []string
	ignore   gitignore.GitIgnore
}

// CompilePatterns compiles patterns in order. Blank lines and comments are
// skipped; a PathSpec without any pattern never matches.
func CompilePatterns(patterns []string) (*PathSpec, error) {
	spec := &PathSpec{patterns: patterns}

	effective := 0
	for _, p := range patterns {
		if err := checkPattern(p); err != nil {
			return nil, &PatternError{Pattern: p, Err: err}
		}
		if t := strings.TrimSpace(p); t != "" && !strings.HasPrefix(t, "#") {
			effective++
		}
	}
	if effective == 0 {
		return spec, nil
	}

	lines := make([]string, len(patterns))
	for i, p := range patterns {
		lines[i] = requireBelow(p)
	}

	var perr *PatternError
	// Position().Line is 1-based and lines map 1:1 to patterns.
	spec.ignore = gitignore.New(strings.NewReader(strings.Join(lines, "\n")), "", func(e gitignore.Error) bool {
		p := ""
		if line := e.Position().Line; line >= 1 && line <= len(patterns) {
			p = patterns[line-1]
		}
		perr = &PatternError{Pattern: p, Err: e}
		return false
	})
	if perr != nil {
		return nil, perr
	}
	return spec, nil
}

// requireBelow rewrites a trailing "/**" to "/**/*". The gitignore matcher
// lets "**" match zero components, so "src/api/**" would otherwise match a
// file named exactly src/api; the rewrite demands at least one more segment.
func requireBelow(p string) string {
	t := strings.TrimRight(p, " \t")
	if strings.HasSuffix(t, "/**") && !strings.HasSuffix(t, "\\/**") {
		return t + "/*"
	}
	return p
}

// Patterns returns the source patterns.
func (s *PathSpec) Patterns() []string {
	return s.patterns
}

// Match reports whether the repository-relative file path matches.
func (s *PathSpec) Match(path string) bool {
	if s == nil || s.ignore == nil || path == "" {
		return false
	}
	path = strings.TrimPrefix(path, "./")

	best := s.ignore.Relative(path, false)
	for dir := parentDir(path); dir != ""; dir = parentDir(dir) {
		m := s.ignore.Relative(dir, true)
		if m == nil {
			continue
		}
		if best == nil || m.Position().Line > best.Position().Line {
			best = m
		}
	}
	return best != nil && best.Ignore()
}

// Filter returns the subsequence of files that match, preserving order.
func (s *PathSpec) Filter(files []string) []string {
	var matches []string
	for _, f := range files {
		if s.Match(f) {
			matches = append(matches, f)
		}
	}
	return matches
}

// MatchPaths compiles patterns and returns the files they match, in the
// order of files.
func MatchPaths(patterns []string, files []string) ([]string, error) {
	spec, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return spec.Filter(files), nil
}

func parentDir(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return ""
	}
	return p[:i]
}

// checkPattern rejects patterns the matcher would otherwise silently
// misread: a bare negation, an unterminated bracket expression and a
// trailing escape.
func checkPattern(p string) error {
	p = strings.TrimRight(p, "\r")
	if strings.TrimSpace(p) == "!" {
		return errors.New("negation without a pattern")
	}

	escaped := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '[':
			end := classEnd(p, i)
			if end < 0 {
				return fmt.Errorf("unterminated character class at offset %d", i)
			}
			i = end
		}
	}
	if escaped {
		return errors.New("trailing backslash")
	}
	return nil
}

// classEnd returns the index of the ']' closing the class opened at start,
// or -1 when there is none.
func classEnd(p string, start int) int {
	i := start + 1
	if i < len(p) && (p[i] == '!' || p[i] == '^') {
		i++
	}
	// a leading ']' is a literal member
	if i < len(p) && p[i] == ']' {
		i++
	}
	for ; i < len(p); i++ {
		switch p[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}
