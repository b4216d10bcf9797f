package database

import (
	"database/sql"
	"errors"
	"fmt"

	"intake-go/internal/database/migrations"
	"intake-go/internal/intake"
	"intake-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the intake.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

var _ intake.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:   db,
		path: path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:   db,
		path: "",
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// DB exposes the underlying connection for migrations.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies any pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullable maps the model's empty-string convention onto NULL columns.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// User operations

const userColumns = "user_id, email, password_hash, display_name, created_at"

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteDatabase) FindUserByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return user, nil
}

func (s *SQLiteDatabase) FindUserByID(id string) (*model.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE user_id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user by id: %w", err)
	}
	return user, nil
}

func (s *SQLiteDatabase) CreateUser(user *model.User) error {
	_, err := s.db.Exec(
		"INSERT INTO users (user_id, email, password_hash, display_name, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.DisplayName, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// Project and version registry operations

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var classification, projectType sql.NullString
	if err := row.Scan(&p.Key, &p.UserID, &p.DisplayName, &classification, &projectType, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Classification = model.Classification(classification.String)
	p.Type = model.ProjectType(projectType.String)
	return &p, nil
}

func (s *SQLiteDatabase) FindProjectByKey(userID, projectKey string) (*model.Project, error) {
	row := s.db.QueryRow(
		"SELECT project_key, user_id, display_name, classification, project_type, created_at, updated_at "+
			"FROM projects WHERE user_id = ? AND project_key = ?",
		userID, projectKey,
	)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding project by key: %w", err)
	}
	return project, nil
}

const versionColumns = "v.version_key, v.project_key, COALESCE(v.upload_id, ''), " +
	"v.fingerprint_strict, v.fingerprint_loose, v.file_count, v.created_at"

func scanVersion(row rowScanner) (*model.ProjectVersion, error) {
	var v model.ProjectVersion
	if err := row.Scan(&v.Key, &v.ProjectKey, &v.UploadID, &v.FingerprintStrict, &v.FingerprintLoose, &v.FileCount, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// findVersionByFingerprint looks up the newest version of any of the
// user's projects matching the given fingerprint column. Versions
// created by excludeUploadID are skipped; a cleared upload reference
// (purged upload) never matches an exclusion.
func (s *SQLiteDatabase) findVersionByFingerprint(column, userID, fingerprint, excludeUploadID string) (*model.ProjectVersion, error) {
	row := s.db.QueryRow(
		"SELECT "+versionColumns+" FROM project_versions v "+
			"JOIN projects p ON p.project_key = v.project_key "+
			"WHERE p.user_id = ? AND v."+column+" = ? "+
			"AND (? = '' OR COALESCE(v.upload_id, '') <> ?) "+
			"ORDER BY v.created_at DESC, v.rowid DESC LIMIT 1",
		userID, fingerprint, excludeUploadID, excludeUploadID,
	)
	version, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version by %s: %w", column, err)
	}
	return version, nil
}

func (s *SQLiteDatabase) FindVersionByStrictFingerprint(userID, fingerprint, excludeUploadID string) (*model.ProjectVersion, error) {
	return s.findVersionByFingerprint("fingerprint_strict", userID, fingerprint, excludeUploadID)
}

func (s *SQLiteDatabase) FindVersionByLooseFingerprint(userID, fingerprint, excludeUploadID string) (*model.ProjectVersion, error) {
	return s.findVersionByFingerprint("fingerprint_loose", userID, fingerprint, excludeUploadID)
}

func (s *SQLiteDatabase) LatestVersionPerProject(userID, excludeUploadID string) ([]*model.ProjectVersion, error) {
	rows, err := s.db.Query(
		"SELECT "+versionColumns+" FROM project_versions v "+
			"JOIN projects p ON p.project_key = v.project_key "+
			"WHERE p.user_id = ? AND v.rowid = ("+
			"SELECT v2.rowid FROM project_versions v2 "+
			"WHERE v2.project_key = v.project_key "+
			"AND (? = '' OR COALESCE(v2.upload_id, '') <> ?) "+
			"ORDER BY v2.created_at DESC, v2.rowid DESC LIMIT 1"+
			") ORDER BY v.created_at DESC, v.rowid DESC",
		userID, excludeUploadID, excludeUploadID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing latest versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.ProjectVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing latest versions: %w", err)
	}
	return versions, nil
}

func (s *SQLiteDatabase) VersionFileHashes(versionKey string) ([]string, error) {
	return s.versionFileColumn("content_hash", versionKey)
}

func (s *SQLiteDatabase) VersionFileRelpaths(versionKey string) ([]string, error) {
	return s.versionFileColumn("relpath", versionKey)
}

func (s *SQLiteDatabase) versionFileColumn(column, versionKey string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT "+column+" FROM version_files WHERE version_key = ? ORDER BY relpath",
		versionKey,
	)
	if err != nil {
		return nil, fmt.Errorf("listing version %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning version %s: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing version %s: %w", column, err)
	}
	return values, nil
}

// Upload operations

const uploadColumns = "upload_id, user_id, zip_name, zip_key, status, state, created_at, updated_at"

func scanUpload(row rowScanner) (*model.Upload, error) {
	var u model.Upload
	if err := row.Scan(&u.ID, &u.UserID, &u.ZipName, &u.ZipKey, &u.Status, &u.State, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteDatabase) CreateUpload(upload *model.Upload) error {
	_, err := s.db.Exec(
		"INSERT INTO uploads (upload_id, user_id, zip_name, zip_key, status, state, created_at, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		upload.ID, upload.UserID, upload.ZipName, upload.ZipKey, string(upload.Status), upload.State, upload.CreatedAt, upload.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating upload: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindUploadByID(userID, uploadID string) (*model.Upload, error) {
	row := s.db.QueryRow(
		"SELECT "+uploadColumns+" FROM uploads WHERE user_id = ? AND upload_id = ?",
		userID, uploadID,
	)
	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding upload by id: %w", err)
	}
	return upload, nil
}

func (s *SQLiteDatabase) ListUploadsByUser(userID string, limit int) ([]*model.Upload, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.Query(
		"SELECT "+uploadColumns+" FROM uploads WHERE user_id = ? "+
			"ORDER BY created_at DESC, rowid DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	return uploads, nil
}

func (s *SQLiteDatabase) CountUploadsByZipKey(zipKey string) (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM uploads WHERE zip_key = ?", zipKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting uploads by zip key: %w", err)
	}
	return count, nil
}

// ApplyUploadPatch atomically advances an upload in a single transaction:
// 1. Compare-and-swap the upload's status while writing the new state
//    document; zero rows updated means a concurrent writer won (or the
//    upload is gone) and the whole patch is abandoned.
// 2. Record the status transition in upload_events.
// 3. Insert the registry rows the step produced.
// 4. Apply classification/type assignments to existing project rows.
func (s *SQLiteDatabase) ApplyUploadPatch(patch *intake.UploadPatch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Guarded status + state write.
	res, err := tx.Exec(
		"UPDATE uploads SET status = ?, state = ?, updated_at = ? WHERE upload_id = ? AND status = ?",
		string(patch.Next), patch.State, patch.At, patch.UploadID, string(patch.Expected),
	)
	if err != nil {
		return fmt.Errorf("updating upload: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		var current string
		err := tx.QueryRow("SELECT status FROM uploads WHERE upload_id = ?", patch.UploadID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("upload %s: %w", patch.UploadID, intake.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading upload status: %w", err)
		}
		return fmt.Errorf("upload %s moved from %s to %s: %w",
			patch.UploadID, patch.Expected, current, intake.ErrConflict)
	}

	// 2. Transition record. Same-status patches (partial submissions)
	// are not transitions.
	if patch.Expected != patch.Next {
		_, err := tx.Exec(
			"INSERT INTO upload_events (upload_id, from_status, to_status, created_at) VALUES (?, ?, ?, ?)",
			patch.UploadID, string(patch.Expected), string(patch.Next), patch.At,
		)
		if err != nil {
			return fmt.Errorf("recording status transition: %w", err)
		}
	}

	// 3. Registry rows.
	for _, w := range patch.Writes {
		if w.Project != nil {
			_, err := tx.Exec(
				"INSERT INTO projects (project_key, user_id, display_name, classification, project_type, created_at, updated_at) "+
					"VALUES (?, ?, ?, ?, ?, ?, ?)",
				w.Project.Key, w.Project.UserID, w.Project.DisplayName,
				nullable(string(w.Project.Classification)), nullable(string(w.Project.Type)),
				w.Project.CreatedAt, w.Project.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting project %s: %w", w.Project.Key, err)
			}
		}
		if w.Version != nil {
			_, err := tx.Exec(
				"INSERT INTO project_versions (version_key, project_key, upload_id, fingerprint_strict, fingerprint_loose, file_count, created_at) "+
					"VALUES (?, ?, ?, ?, ?, ?, ?)",
				w.Version.Key, w.Version.ProjectKey, nullable(w.Version.UploadID),
				w.Version.FingerprintStrict, w.Version.FingerprintLoose,
				w.Version.FileCount, w.Version.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting version %s: %w", w.Version.Key, err)
			}
		}
		for _, f := range w.Files {
			_, err := tx.Exec(
				"INSERT INTO version_files (version_key, relpath, content_hash, size_bytes) VALUES (?, ?, ?, ?)",
				f.VersionKey, f.Relpath, f.ContentHash, f.SizeBytes,
			)
			if err != nil {
				return fmt.Errorf("inserting version file %s: %w", f.Relpath, err)
			}
		}
	}

	// 4. Project field assignments.
	for _, u := range patch.Updates {
		if u.Classification != nil {
			_, err := tx.Exec(
				"UPDATE projects SET classification = ?, updated_at = ? WHERE user_id = ? AND project_key = ?",
				string(*u.Classification), u.UpdatedAt, u.UserID, u.ProjectKey,
			)
			if err != nil {
				return fmt.Errorf("updating project %s classification: %w", u.ProjectKey, err)
			}
		}
		if u.Type != nil {
			_, err := tx.Exec(
				"UPDATE projects SET project_type = ?, updated_at = ? WHERE user_id = ? AND project_key = ?",
				string(*u.Type), u.UpdatedAt, u.UserID, u.ProjectKey,
			)
			if err != nil {
				return fmt.Errorf("updating project %s type: %w", u.ProjectKey, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListUploadEvents(uploadID string) ([]*model.UploadEvent, error) {
	rows, err := s.db.Query(
		"SELECT id, upload_id, from_status, to_status, created_at FROM upload_events "+
			"WHERE upload_id = ? ORDER BY id",
		uploadID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing upload events: %w", err)
	}
	defer rows.Close()

	var events []*model.UploadEvent
	for rows.Next() {
		var e model.UploadEvent
		if err := rows.Scan(&e.ID, &e.UploadID, &e.FromStatus, &e.ToStatus, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning upload event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing upload events: %w", err)
	}
	return events, nil
}

// DeleteUpload removes the upload row and its events in one transaction.
// Version rows created by the upload keep their place in the lineage;
// only their upload reference is cleared.
func (s *SQLiteDatabase) DeleteUpload(userID, uploadID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRow("SELECT user_id FROM uploads WHERE upload_id = ?", uploadID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("upload %s: %w", uploadID, intake.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("finding upload: %w", err)
	}
	if owner != userID {
		return fmt.Errorf("upload %s: %w", uploadID, intake.ErrNotFound)
	}

	if _, err := tx.Exec("UPDATE project_versions SET upload_id = NULL WHERE upload_id = ?", uploadID); err != nil {
		return fmt.Errorf("clearing version upload references: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM upload_events WHERE upload_id = ?", uploadID); err != nil {
		return fmt.Errorf("deleting upload events: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM uploads WHERE upload_id = ?", uploadID); err != nil {
		return fmt.Errorf("deleting upload: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
