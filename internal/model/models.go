package model

import "time"

// User is an account that owns projects and uploads. All registry and
// upload lookups are scoped to a single user.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string // bcrypt
	DisplayName  string
	CreatedAt    time.Time
}

// Classification says whether a project was built alone or with others.
type Classification string

const (
	ClassificationIndividual    Classification = "individual"
	ClassificationCollaborative Classification = "collaborative"
)

// Valid reports whether c is a known classification value.
func (c Classification) Valid() bool {
	return c == ClassificationIndividual || c == ClassificationCollaborative
}

// ProjectType says what kind of content a project holds.
type ProjectType string

const (
	ProjectTypeCode ProjectType = "code"
	ProjectTypeText ProjectType = "text"
)

// Valid reports whether t is a known project type value.
func (t ProjectType) Valid() bool {
	return t == ProjectTypeCode || t == ProjectTypeText
}

// Project is a logical project owned by a user. Versions hang off it.
// Classification and Type are empty until assigned.
type Project struct {
	Key            string // UUID
	UserID         string
	DisplayName    string
	Classification Classification
	Type           ProjectType
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProjectVersion is one fingerprinted snapshot of a project's content.
// UploadID records which upload created the version and is empty for
// rows whose upload has been purged.
type ProjectVersion struct {
	Key               string // UUID
	ProjectKey        string
	UploadID          string
	FingerprintStrict string // SHA-256 hex over sorted (relpath, hash) pairs
	FingerprintLoose  string // SHA-256 hex over sorted content hashes
	FileCount         int64
	CreatedAt         time.Time
}

// VersionFile is a single file within a version: its path relative to the
// project directory and the SHA-256 of its content.
type VersionFile struct {
	VersionKey  string
	Relpath     string
	ContentHash string
	SizeBytes   int64
}

// UploadStatus is the persisted stage of an upload. Status is always
// computed from the accumulated state document, never set directly by
// callers, and only moves forward (except the failed branch).
type UploadStatus string

const (
	StatusStarted             UploadStatus = "started"
	StatusParsed              UploadStatus = "parsed"
	StatusNeedsDedup          UploadStatus = "needs_dedup"
	StatusNeedsClassification UploadStatus = "needs_classification"
	StatusNeedsProjectTypes   UploadStatus = "needs_project_types"
	StatusNeedsFileRoles      UploadStatus = "needs_file_roles"
	StatusNeedsSummaries      UploadStatus = "needs_summaries"
	StatusAnalyzing           UploadStatus = "analyzing"
	StatusDone                UploadStatus = "done"
	StatusFailed              UploadStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s UploadStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Upload is one archive submission walking through the intake pipeline.
// State holds the accumulated state document as JSON; ZipKey is the
// content checksum of the stored archive blob.
type Upload struct {
	ID        string // UUID
	UserID    string
	ZipName   string
	ZipKey    string
	Status    UploadStatus
	State     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UploadEvent records one status transition of an upload.
type UploadEvent struct {
	ID         int64
	UploadID   string
	FromStatus UploadStatus
	ToStatus   UploadStatus
	CreatedAt  time.Time
}
