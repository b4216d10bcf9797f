package intake

import (
	"time"

	"intake-go/internal/model"
)

// Database provides an interface for metadata storage operations.
// All lookups are scoped by user; the registry never crosses user
// namespaces. Not-found lookups return (nil, nil).
type Database interface {
	// User operations

	// FindUserByEmail returns the user with the given email.
	FindUserByEmail(email string) (*model.User, error)

	// FindUserByID returns the user with the given ID.
	FindUserByID(id string) (*model.User, error)

	// CreateUser inserts a new user. Fails if the email is taken.
	CreateUser(user *model.User) error

	// Project and version registry operations

	// FindProjectByKey returns a project owned by the user.
	FindProjectByKey(userID, projectKey string) (*model.Project, error)

	// FindVersionByStrictFingerprint returns the newest version of any of
	// the user's projects whose strict fingerprint matches. Versions
	// created by excludeUploadID are not considered; pass "" to search all.
	FindVersionByStrictFingerprint(userID, fingerprint, excludeUploadID string) (*model.ProjectVersion, error)

	// FindVersionByLooseFingerprint is the loose-fingerprint analogue of
	// FindVersionByStrictFingerprint.
	FindVersionByLooseFingerprint(userID, fingerprint, excludeUploadID string) (*model.ProjectVersion, error)

	// LatestVersionPerProject returns the newest version of each of the
	// user's projects, skipping versions created by excludeUploadID (a
	// project whose only versions came from that upload is omitted).
	LatestVersionPerProject(userID, excludeUploadID string) ([]*model.ProjectVersion, error)

	// VersionFileHashes returns the content hashes recorded for a version.
	// Duplicates are preserved; callers build sets as needed.
	VersionFileHashes(versionKey string) ([]string, error)

	// VersionFileRelpaths returns the relative paths recorded for a version.
	VersionFileRelpaths(versionKey string) ([]string, error)

	// Upload operations

	// CreateUpload inserts a new upload row.
	CreateUpload(upload *model.Upload) error

	// FindUploadByID returns an upload owned by the user.
	FindUploadByID(userID, uploadID string) (*model.Upload, error)

	// ListUploadsByUser returns the user's uploads, newest first.
	ListUploadsByUser(userID string, limit int) ([]*model.Upload, error)

	// CountUploadsByZipKey returns how many uploads reference a stored
	// archive blob. Purge uses it to keep blobs shared by identical
	// uploads.
	CountUploadsByZipKey(zipKey string) (int64, error)

	// ApplyUploadPatch atomically advances an upload: it writes the new
	// status and state document, records the status transition, inserts
	// any registry rows produced by the step, and applies project field
	// updates, all in one transaction. The write is guarded by a
	// compare-and-swap on the expected status; a mismatch makes the whole
	// patch fail with a conflict error and no rows are touched.
	ApplyUploadPatch(patch *UploadPatch) error

	// ListUploadEvents returns an upload's status transitions, oldest first.
	ListUploadEvents(uploadID string) ([]*model.UploadEvent, error)

	// DeleteUpload removes an upload row and its events. Registry rows
	// created by the upload survive with their upload reference cleared.
	DeleteUpload(userID, uploadID string) error

	// CheckMigrations verifies the database schema is up-to-date.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}

// RegistryWrite is a unit of registry insertion produced by a dedup
// outcome: an optional new project, a version, and the version's files.
type RegistryWrite struct {
	Project *model.Project // nil when the version attaches to an existing project
	Version *model.ProjectVersion
	Files   []*model.VersionFile
}

// ProjectFieldUpdate assigns classification and/or type to an existing
// project row. Nil fields are left untouched.
type ProjectFieldUpdate struct {
	UserID         string
	ProjectKey     string
	Classification *model.Classification
	Type           *model.ProjectType
	UpdatedAt      time.Time
}

// UploadPatch is one atomic step of the upload pipeline: the upload's
// next status and state document plus everything the step writes to the
// registry. Expected is the status the caller read before computing the
// patch; the store rejects the patch if the row has moved on.
type UploadPatch struct {
	UploadID string
	Expected model.UploadStatus
	Next     model.UploadStatus
	State    []byte
	At       time.Time
	Writes   []RegistryWrite
	Updates  []ProjectFieldUpdate
}
