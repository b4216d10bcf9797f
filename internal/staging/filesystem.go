package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"intake-go/internal/intake"
)

// filesystemStore spills staged content to a scratch directory, one
// file per checksum.
type filesystemStore struct {
	dir string
}

func newFilesystemStore(dir string) (*filesystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &filesystemStore{dir: dir}, nil
}

func (f *filesystemStore) StoreContent(r io.Reader) (string, int64, error) {
	// Spool through a temp file in the same directory so the final
	// move to the checksum name is an atomic rename.
	tmpFile, err := os.CreateTemp(f.dir, ".staging-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmpFile, h), r)
	if err != nil {
		tmpFile.Close()
		return "", 0, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	checksum := hex.EncodeToString(h.Sum(nil))
	if err := os.Rename(tmpPath, filepath.Join(f.dir, checksum)); err != nil {
		return "", 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return checksum, size, nil
}

func (f *filesystemStore) RemoveContent(checksum string) {
	os.Remove(filepath.Join(f.dir, checksum))
}

func (f *filesystemStore) OpenContent(checksum string) (intake.ReadAtCloser, int64, error) {
	file, err := os.Open(filepath.Join(f.dir, checksum))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("staged content not found: %s", checksum)
		}
		return nil, 0, fmt.Errorf("failed to open staged content: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to stat staged content: %w", err)
	}
	return file, info.Size(), nil
}

func (f *filesystemStore) ContentSize() (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read staging directory: %w", err)
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}
