package intake

import "io"

// ArchiveEntry is one file found inside an uploaded archive. Path is
// normalized: forward slashes, no leading slash, no "." or ".." segments.
// An entry whose content could not be read carries the failure in Err and
// an empty Hash; it still names its path so the owning project can fail
// closed with a useful report.
type ArchiveEntry struct {
	Path string
	Size int64
	Hash string // SHA-256 hex of the content, empty when Err is set
	Err  string
}

// ArchiveParser expands an uploaded archive into its file entries.
// Parsing rejects structurally hostile archives (absolute paths, path
// traversal) outright; per-entry read failures are reported on the entry.
type ArchiveParser interface {
	Parse(r io.ReaderAt, size int64) ([]ArchiveEntry, error)
}

// FileRecord is the (relpath, content hash) pair the fingerprint engine
// and the registry operate on. Relpath is relative to the project
// directory, not the archive root.
type FileRecord struct {
	Relpath string `json:"relpath"`
	Hash    string `json:"hash"`
	Size    int64  `json:"size"`
}
