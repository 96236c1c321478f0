package resource

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ExcludeSet decides whether a tree-relative key is filtered out.
// Patterns support:
//   - basename globs: *.tmp, cache-??.db
//   - directory patterns: .git/, node_modules/
//   - path globs, where * stays inside one segment and ** crosses them:
//     build/*, logs/**, **/test/*.go
//
// A nil *ExcludeSet excludes nothing.
type ExcludeSet struct {
	dirs      []string
	basenames []glob.Glob
	paths     []glob.Glob
}

// CompileExcludes parses patterns. Empty patterns are ignored.
func CompileExcludes(patterns []string) (*ExcludeSet, error) {
	set := &ExcludeSet{}
	for _, raw := range patterns {
		pattern := filepath.ToSlash(strings.TrimSpace(raw))
		if pattern == "" {
			continue
		}

		if strings.HasSuffix(pattern, "/") {
			set.dirs = append(set.dirs, strings.Trim(pattern, "/"))
			continue
		}

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		if !strings.Contains(pattern, "/") {
			set.basenames = append(set.basenames, g)
			continue
		}
		set.paths = append(set.paths, g)

		// **/x also matches x at the top of the tree
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			top, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
			}
			set.paths = append(set.paths, top)
		}
	}
	return set, nil
}

// Match reports whether key, a '/' separated relative path, is excluded
func (s *ExcludeSet) Match(key string) bool {
	if s == nil {
		return false
	}
	key = filepath.ToSlash(key)

	for _, dir := range s.dirs {
		if strings.HasPrefix(key, dir+"/") || strings.Contains(key, "/"+dir+"/") {
			return true
		}
	}

	base := path.Base(key)
	for _, g := range s.basenames {
		if g.Match(base) {
			return true
		}
	}
	for _, g := range s.paths {
		if g.Match(key) {
			return true
		}
	}
	return false
}

// Empty reports whether the set has no patterns
func (s *ExcludeSet) Empty() bool {
	return s == nil || len(s.dirs)+len(s.basenames)+len(s.paths) == 0
}
