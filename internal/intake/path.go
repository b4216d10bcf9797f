package intake

import (
	"path"
	"strings"
)

// CleanEntryPath normalizes an archive entry path to the canonical form
// used throughout the pipeline: forward slashes, no leading slash, no
// empty, "." or ".." segments. Returns "" for paths that cannot be made
// safe (absolute paths, traversal attempts, drive prefixes).
func CleanEntryPath(raw string) string {
	p := strings.ReplaceAll(raw, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, ":") {
		return ""
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return ""
	}
	return p
}

// SplitTopLevel splits a normalized entry path into its top-level segment
// and the remainder. A bare filename returns ("", name).
func SplitTopLevel(p string) (top, rest string) {
	i := strings.IndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}
