package intake

import "io"

// Vault provides an interface for archive blob storage backends.
// Blobs are addressed by the SHA-256 checksum of the uploaded archive.
// All operations stream through io.Reader/io.Writer to support large
// archives without loading them entirely into memory.
type Vault interface {
	// PutArchive stores an archive blob identified by its checksum.
	// The operation is idempotent: storing the same checksum twice is safe.
	PutArchive(checksum string, r io.Reader) error

	// GetArchive retrieves an archive blob by checksum and writes it to w.
	GetArchive(checksum string, w io.Writer) error

	// DeleteArchive removes an archive blob. Deleting a missing blob is
	// not an error.
	DeleteArchive(checksum string) error

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}

// Encryptor transforms archive blobs at rest. Implementations must
// guarantee Decrypt(Encrypt(x)) == x.
type Encryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
