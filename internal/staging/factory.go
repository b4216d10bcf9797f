package staging

import (
	"fmt"

	"intake-go/internal/config"
	"intake-go/internal/intake"
)

// DefaultMaxSize is the default maximum staging area size (512MB).
const DefaultMaxSize int64 = 512 * 1024 * 1024

// NewStagingAreaFromConfig creates a StagingArea implementation based on the config type.
func NewStagingAreaFromConfig(cfg config.StagingConfig) (intake.StagingArea, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch cfg.Type {
	case "memory":
		return NewMemoryStagingArea(maxSize), nil
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging area requires staging_dir to be set")
		}
		return NewFileSystemStagingArea(cfg.StagingDir, maxSize)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}

// NewMemoryStagingArea creates a staging area backed by process memory.
func NewMemoryStagingArea(maxSize int64) intake.StagingArea {
	return &stagingArea{store: newMemoryStore(), maxSize: maxSize}
}

// NewFileSystemStagingArea creates a staging area backed by a scratch
// directory.
func NewFileSystemStagingArea(dir string, maxSize int64) (intake.StagingArea, error) {
	store, err := newFilesystemStore(dir)
	if err != nil {
		return nil, err
	}
	return &stagingArea{store: store, maxSize: maxSize}, nil
}
