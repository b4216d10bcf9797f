package testutil

import (
	"intake-go/internal/intake"
	"intake-go/internal/staging"
)

const (
	// DefaultStagingMaxSize is the default max size for test staging areas (10MB).
	DefaultStagingMaxSize = 10 * 1024 * 1024
)

// NewTestStagingArea creates a new in-memory staging area for testing.
func NewTestStagingArea() intake.StagingArea {
	return staging.NewMemoryStagingArea(DefaultStagingMaxSize)
}

// NewTestStagingAreaWithSize creates a new in-memory staging area with a custom max size.
func NewTestStagingAreaWithSize(maxSize int64) intake.StagingArea {
	return staging.NewMemoryStagingArea(maxSize)
}
