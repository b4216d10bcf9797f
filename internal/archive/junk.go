package archive

import (
	"path"
	"strings"
)

// defaultJunkPatterns are always filtered out of uploaded archives.
// A trailing slash marks a directory name: every entry under a segment
// with that name is dropped. Anything else matches against basenames.
var defaultJunkPatterns = []string{
	"__MACOSX/",
	".git/",
	".svn/",
	".hg/",
	"node_modules/",
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"._*",
}

// JunkMatcher checks archive entry paths against patterns for the
// housekeeping files archive tools and operating systems sprinkle into
// zips. Matched entries are dropped before layout analysis so they
// never count as project content.
type JunkMatcher struct {
	dirs  map[string]struct{}
	names []string
}

// NewJunkMatcher creates a JunkMatcher from the default patterns plus
// any extra raw patterns. Blank patterns and lines starting with '#'
// are skipped.
func NewJunkMatcher(extra []string) *JunkMatcher {
	m := &JunkMatcher{dirs: make(map[string]struct{})}
	for _, raw := range append(append([]string{}, defaultJunkPatterns...), extra...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if name := strings.TrimSuffix(raw, "/"); name != raw {
			m.dirs[name] = struct{}{}
			continue
		}
		m.names = append(m.names, raw)
	}
	return m
}

// Match reports whether the given entry path is junk. The path must be
// normalized: forward slashes, relative to the archive root.
func (m *JunkMatcher) Match(relpath string) bool {
	segments := strings.Split(relpath, "/")
	for _, seg := range segments[:len(segments)-1] {
		if _, ok := m.dirs[seg]; ok {
			return true
		}
	}

	base := segments[len(segments)-1]
	for _, pattern := range m.names {
		matched, err := path.Match(pattern, base)
		if err != nil {
			// Bad pattern, skip rather than crash.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
