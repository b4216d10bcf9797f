package staging

import (
	"io"

	"intake-go/internal/intake"
)

// stagingStore abstracts the storage mechanics for a staging area.
// Concurrency is managed by the caller (stagingArea.mu), so stores do
// not need to be safe for concurrent use.
type stagingStore interface {
	// StoreContent reads from r, computes SHA-256, and stores the
	// content. Deduplicates if the checksum already exists. Returns
	// the checksum and size.
	StoreContent(r io.Reader) (checksum string, size int64, err error)

	// RemoveContent removes stored content by checksum (best-effort).
	RemoveContent(checksum string)

	// OpenContent returns a random-access reader over stored content
	// and its size.
	OpenContent(checksum string) (intake.ReadAtCloser, int64, error)

	// ContentSize returns total bytes of all stored content.
	ContentSize() (int64, error)
}
