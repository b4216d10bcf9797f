package encryption

import (
	"fmt"

	"intake-go/internal/config"
	"intake-go/internal/intake"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor, meaning archives are stored as-is.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (intake.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
