// Package staging holds incoming archives in scratch storage while the
// intake pass hashes, parses, and persists them.
package staging

import (
	"fmt"
	"io"
	"sync"

	"intake-go/internal/intake"
)

// stagingArea implements intake.StagingArea using a pluggable
// stagingStore for the storage mechanics. Size accounting and the
// capacity limit live here.
type stagingArea struct {
	store   stagingStore
	maxSize int64
	mu      sync.Mutex
}

var _ intake.StagingArea = (*stagingArea)(nil)

// Stage reads the archive into scratch storage and returns its
// checksum. An archive that would push the staged total over the
// capacity limit is rejected and nothing is kept.
func (s *stagingArea) Stage(r io.Reader) (*intake.StagedArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, err := s.store.ContentSize()
	if err != nil {
		return nil, fmt.Errorf("getting staged size: %w", err)
	}
	remaining := s.maxSize - used
	if remaining <= 0 {
		return nil, fmt.Errorf("%w: staging area full (%d bytes staged)", intake.ErrInvalidInput, used)
	}

	// Read one byte past the remaining capacity so an oversized
	// archive is detected without spooling all of it.
	checksum, size, err := s.store.StoreContent(io.LimitReader(r, remaining+1))
	if err != nil {
		return nil, fmt.Errorf("storing content: %w", err)
	}
	if size > remaining {
		s.store.RemoveContent(checksum)
		return nil, fmt.Errorf("%w: archive exceeds staging capacity of %d bytes", intake.ErrInvalidInput, s.maxSize)
	}

	return &intake.StagedArchive{Checksum: checksum, Size: size}, nil
}

// Open returns a reader over a staged archive and its size.
func (s *stagingArea) Open(checksum string) (intake.ReadAtCloser, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.OpenContent(checksum)
}

// Remove deletes a staged archive.
func (s *stagingArea) Remove(checksum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.RemoveContent(checksum)
	return nil
}

// Size returns the total bytes currently staged.
func (s *stagingArea) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ContentSize()
}
