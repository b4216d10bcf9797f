package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetArchive(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name     string
		checksum string
		content  string
	}{
		{
			name:     "store and retrieve archive",
			checksum: "abc123",
			content:  "hello world",
		},
		{
			name:     "store empty archive",
			checksum: "empty",
			content:  "",
		},
		{
			name:     "store large archive",
			checksum: "large",
			content:  strings.Repeat("x", 10000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := vault.PutArchive(tt.checksum, strings.NewReader(tt.content)); err != nil {
				t.Fatalf("PutArchive() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetArchive(tt.checksum, &buf); err != nil {
				t.Fatalf("GetArchive() error = %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetArchive() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_PutArchiveIdempotent(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	content := "test content"
	checksum := "test-checksum"

	for i := 0; i < 2; i++ {
		if err := vault.PutArchive(checksum, strings.NewReader(content)); err != nil {
			t.Fatalf("PutArchive() iteration %d error: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := vault.GetArchive(checksum, &buf); err != nil {
		t.Fatalf("GetArchive() error: %v", err)
	}
	if got := buf.String(); got != content {
		t.Errorf("GetArchive() = %q, want %q", got, content)
	}
}

func TestMemoryVault_GetArchiveNotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	err := vault.GetArchive("nonexistent", &buf)
	if err == nil {
		t.Error("GetArchive() expected error for nonexistent checksum, got nil")
	}
}

func TestMemoryVault_DeleteArchive(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	checksum := "to-delete"
	if err := vault.PutArchive(checksum, strings.NewReader("data")); err != nil {
		t.Fatalf("PutArchive() error: %v", err)
	}

	if err := vault.DeleteArchive(checksum); err != nil {
		t.Fatalf("DeleteArchive() error: %v", err)
	}

	var buf bytes.Buffer
	if err := vault.GetArchive(checksum, &buf); err == nil {
		t.Error("GetArchive() after delete expected error, got nil")
	}

	// Deleting a missing archive is not an error.
	if err := vault.DeleteArchive("nonexistent"); err != nil {
		t.Errorf("DeleteArchive() for missing checksum error: %v", err)
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if err := vault.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() unexpected error: %v", err)
	}
}
