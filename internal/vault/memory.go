package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"intake-go/internal/intake"
)

// MemoryVault is an in-memory implementation of the Vault interface,
// useful for testing. This implementation is safe for concurrent use.
type MemoryVault struct {
	name    string
	content map[string][]byte // checksum -> archive bytes
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		content: make(map[string][]byte),
	}
}

// PutArchive stores an archive blob identified by its checksum.
func (m *MemoryVault) PutArchive(checksum string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: storing the same checksum multiple times is safe
	m.content[checksum] = data
	return nil
}

// GetArchive retrieves an archive blob by checksum.
func (m *MemoryVault) GetArchive(checksum string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[checksum]
	if !ok {
		return fmt.Errorf("archive not found: %s", checksum)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// DeleteArchive removes an archive blob.
func (m *MemoryVault) DeleteArchive(checksum string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.content, checksum)
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements intake.Vault interface
var _ intake.Vault = (*MemoryVault)(nil)
