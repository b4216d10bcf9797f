package vault

import (
	"fmt"
	"io"

	"intake-go/internal/intake"
)

// EncryptingVault wraps another vault and encrypts archive content on
// the way in, decrypting it on the way out. Archives are still keyed
// by their plaintext checksum so lookups and dedup are unaffected.
type EncryptingVault struct {
	inner     intake.Vault
	encryptor intake.Encryptor
}

// NewEncryptingVault wraps inner so that all stored content passes
// through the given encryptor.
func NewEncryptingVault(inner intake.Vault, encryptor intake.Encryptor) *EncryptingVault {
	return &EncryptingVault{inner: inner, encryptor: encryptor}
}

// PutArchive encrypts the stream and hands the ciphertext to the inner
// vault. No intermediate buffer: the encryptor writes into a pipe the
// inner vault reads from.
func (v *EncryptingVault) PutArchive(checksum string, r io.Reader) error {
	pr, pw := io.Pipe()
	encErrCh := make(chan error, 1)
	go func() {
		err := v.encryptor.Encrypt(r, pw)
		pw.CloseWithError(err)
		encErrCh <- err
	}()

	putErr := v.inner.PutArchive(checksum, pr)
	pr.CloseWithError(putErr) // unblock goroutine if the put finished early
	encErr := <-encErrCh      // wait for goroutine to finish (no leak)

	if encErr != nil {
		return fmt.Errorf("encrypting archive %s: %w", checksum, encErr)
	}
	if putErr != nil {
		return fmt.Errorf("storing encrypted archive %s: %w", checksum, putErr)
	}
	return nil
}

// GetArchive pipes ciphertext from the inner vault through the
// decryptor into w.
func (v *EncryptingVault) GetArchive(checksum string, w io.Writer) error {
	pr, pw := io.Pipe()
	getErrCh := make(chan error, 1)
	go func() {
		err := v.inner.GetArchive(checksum, pw)
		pw.CloseWithError(err)
		getErrCh <- err
	}()

	decErr := v.encryptor.Decrypt(pr, w)
	pr.CloseWithError(decErr) // unblock goroutine if Decrypt failed early
	getErr := <-getErrCh      // wait for goroutine to finish (no leak)

	if getErr != nil {
		return fmt.Errorf("retrieving encrypted archive %s: %w", checksum, getErr)
	}
	if decErr != nil {
		return fmt.Errorf("decrypting archive %s: %w", checksum, decErr)
	}
	return nil
}

// DeleteArchive removes the ciphertext blob from the inner vault.
func (v *EncryptingVault) DeleteArchive(checksum string) error {
	return v.inner.DeleteArchive(checksum)
}

// ValidateSetup delegates to the inner vault.
func (v *EncryptingVault) ValidateSetup() error {
	return v.inner.ValidateSetup()
}

// Compile-time check that EncryptingVault implements intake.Vault interface
var _ intake.Vault = (*EncryptingVault)(nil)
