package intake

import "io"

// ReadAtCloser is what a staged archive reads as: sequential for blob
// upload, random-access for zip parsing.
type ReadAtCloser interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

// StagedArchive describes an archive spilled to the staging area.
type StagedArchive struct {
	Checksum string // SHA-256 hex of the archive bytes
	Size     int64
}

// StagingArea provides scratch storage for incoming archives. An archive
// is staged once on receipt, read for parsing and for the vault upload,
// and removed when the intake pass finishes. The staging area enforces a
// maximum size so oversized uploads are rejected before touching the
// vault or the database.
type StagingArea interface {
	// Stage reads the archive from r, computes its checksum, and stores
	// it in scratch space. Staging the same content twice deduplicates.
	Stage(r io.Reader) (*StagedArchive, error)

	// Open returns a reader over a staged archive and its size.
	Open(checksum string) (ReadAtCloser, int64, error)

	// Remove deletes a staged archive (best-effort).
	Remove(checksum string) error

	// Size returns the total bytes currently staged.
	Size() (int64, error)
}
