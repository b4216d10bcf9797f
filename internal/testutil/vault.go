package testutil

import (
	"intake-go/internal/intake"
	"intake-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() intake.Vault {
	return vault.NewMemoryVault("test-vault")
}
