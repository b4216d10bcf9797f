package staging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"intake-go/internal/intake"
)

// memoryStore keeps staged content in process memory. Useful for tests
// and single-shot CLI runs.
type memoryStore struct {
	blobs map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string][]byte)}
}

func (m *memoryStore) StoreContent(r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("reading content: %w", err)
	}
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	if _, ok := m.blobs[checksum]; !ok {
		m.blobs[checksum] = data
	}
	return checksum, int64(len(data)), nil
}

func (m *memoryStore) RemoveContent(checksum string) {
	delete(m.blobs, checksum)
}

func (m *memoryStore) OpenContent(checksum string) (intake.ReadAtCloser, int64, error) {
	data, ok := m.blobs[checksum]
	if !ok {
		return nil, 0, fmt.Errorf("staged content not found: %s", checksum)
	}
	return nopReadAtCloser{bytes.NewReader(data)}, int64(len(data)), nil
}

func (m *memoryStore) ContentSize() (int64, error) {
	var total int64
	for _, data := range m.blobs {
		total += int64(len(data))
	}
	return total, nil
}

// nopReadAtCloser adds a no-op Close to a bytes.Reader.
type nopReadAtCloser struct {
	*bytes.Reader
}

func (nopReadAtCloser) Close() error { return nil }
