package vault

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// shiftEncryptor adds one to every byte. Enough to prove content is
// transformed on the way in and restored on the way out.
type shiftEncryptor struct{}

func (shiftEncryptor) Encrypt(r io.Reader, w io.Writer) error { return shiftCopy(r, w, 1) }
func (shiftEncryptor) Decrypt(r io.Reader, w io.Writer) error { return shiftCopy(r, w, -1) }

func shiftCopy(r io.Reader, w io.Writer, delta int) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = byte(int(b) + delta)
	}
	_, err = w.Write(out)
	return err
}

// failingEncryptor fails both directions with a fixed error.
type failingEncryptor struct{ err error }

func (f failingEncryptor) Encrypt(io.Reader, io.Writer) error { return f.err }
func (f failingEncryptor) Decrypt(io.Reader, io.Writer) error { return f.err }

func TestEncryptingVault_RoundTrip(t *testing.T) {
	inner := NewMemoryVault("inner")
	ev := NewEncryptingVault(inner, shiftEncryptor{})

	plaintext := "secret project archive"
	checksum := "plain-checksum"

	if err := ev.PutArchive(checksum, strings.NewReader(plaintext)); err != nil {
		t.Fatalf("PutArchive() error = %v", err)
	}

	// The inner vault must hold ciphertext, not the plaintext.
	var stored bytes.Buffer
	if err := inner.GetArchive(checksum, &stored); err != nil {
		t.Fatalf("inner GetArchive() error = %v", err)
	}
	if stored.String() == plaintext {
		t.Error("inner vault stores plaintext")
	}

	var got bytes.Buffer
	if err := ev.GetArchive(checksum, &got); err != nil {
		t.Fatalf("GetArchive() error = %v", err)
	}
	if got.String() != plaintext {
		t.Errorf("GetArchive() = %q, want %q", got.String(), plaintext)
	}
}

func TestEncryptingVault_Delegates(t *testing.T) {
	inner := NewMemoryVault("inner")
	ev := NewEncryptingVault(inner, shiftEncryptor{})

	checksum := "to-delete"
	if err := ev.PutArchive(checksum, strings.NewReader("data")); err != nil {
		t.Fatalf("PutArchive() error = %v", err)
	}

	if err := ev.DeleteArchive(checksum); err != nil {
		t.Fatalf("DeleteArchive() error = %v", err)
	}
	var buf bytes.Buffer
	if err := inner.GetArchive(checksum, &buf); err == nil {
		t.Error("inner still holds archive after delete")
	}

	if err := ev.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestEncryptingVault_EncryptFailure(t *testing.T) {
	sentinel := errors.New("bad key")
	inner := NewMemoryVault("inner")
	ev := NewEncryptingVault(inner, failingEncryptor{err: sentinel})

	err := ev.PutArchive("sum", strings.NewReader("data"))
	if err == nil {
		t.Fatal("PutArchive() expected error")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want wrapped %v", err, sentinel)
	}

	// A failed put must not leave a blob behind.
	var buf bytes.Buffer
	if err := inner.GetArchive("sum", &buf); err == nil {
		t.Error("inner holds archive after failed put")
	}
}

func TestEncryptingVault_DecryptFailure(t *testing.T) {
	inner := NewMemoryVault("inner")

	// Store ciphertext through a working encryptor first.
	if err := NewEncryptingVault(inner, shiftEncryptor{}).PutArchive("sum", strings.NewReader("data")); err != nil {
		t.Fatalf("PutArchive() error = %v", err)
	}

	sentinel := errors.New("bad key")
	ev := NewEncryptingVault(inner, failingEncryptor{err: sentinel})

	var buf bytes.Buffer
	err := ev.GetArchive("sum", &buf)
	if err == nil {
		t.Fatal("GetArchive() expected error")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want wrapped %v", err, sentinel)
	}
}

func TestEncryptingVault_GetMissing(t *testing.T) {
	ev := NewEncryptingVault(NewMemoryVault("inner"), shiftEncryptor{})

	var buf bytes.Buffer
	err := ev.GetArchive("nonexistent", &buf)
	if err == nil {
		t.Fatal("GetArchive() expected error")
	}
	if !strings.Contains(err.Error(), "archive not found") {
		t.Errorf("error = %v, want 'archive not found'", err)
	}
}
