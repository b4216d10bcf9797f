// Package vault stores uploaded archive blobs, content-addressed by
// their SHA-256 checksum, behind the intake.Vault interface.
package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"intake-go/internal/intake"
)

// FileSystemVault is a filesystem-based implementation of the Vault
// interface. Blobs live in a content/ directory under the vault root,
// named by checksum:
//
//	<root>/
//	  content/
//	    <checksum>
type FileSystemVault struct {
	name       string
	root       string
	contentDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	contentDir := filepath.Join(root, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	return &FileSystemVault{
		name:       name,
		root:       root,
		contentDir: contentDir,
	}, nil
}

// PutArchive stores an archive blob identified by its checksum.
// The operation is idempotent: storing the same checksum multiple times is safe.
func (v *FileSystemVault) PutArchive(checksum string, r io.Reader) error {
	destPath := filepath.Join(v.contentDir, checksum)

	// If the blob already exists, skip (idempotent)
	if _, err := os.Stat(destPath); err == nil {
		return nil
	}

	return v.writeFile(destPath, r)
}

// GetArchive retrieves an archive blob by checksum and writes it to w.
func (v *FileSystemVault) GetArchive(checksum string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.contentDir, checksum))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("archive not found: %s", checksum)
		}
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	return nil
}

// DeleteArchive removes an archive blob. Deleting a missing blob is not
// an error.
func (v *FileSystemVault) DeleteArchive(checksum string) error {
	err := os.Remove(filepath.Join(v.contentDir, checksum))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete archive: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.contentDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements intake.Vault interface
var _ intake.Vault = (*FileSystemVault)(nil)
