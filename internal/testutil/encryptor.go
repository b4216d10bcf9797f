package testutil

import (
	"intake-go/internal/encryption"
	"intake-go/internal/intake"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() intake.Encryptor {
	return encryption.NewTestEncryptor()
}
