package finder

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// CompileExcludes compiles exclusion patterns.
func CompileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		res = append(res, re)
	}

	return res, nil
}

// Excluded returns the first pattern matching the slash-separated form of path, or nil.
func Excluded(path string, patterns []*regexp.Regexp) *regexp.Regexp {
	if len(patterns) == 0 {
		return nil
	}

	fPath := filepath.ToSlash(path)

	for _, re := range patterns {
		if re.MatchString(fPath) {
			return re
		}
	}

	return nil
}
