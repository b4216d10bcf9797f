package testutil

import (
	"testing"

	"intake-go/internal/database"
	"intake-go/internal/database/migrations"
	"intake-go/internal/intake"
	"intake-go/internal/model"
)

// NewTestDatabase creates a new in-memory SQLite database with all
// migrations applied. The database is automatically closed when the test
// completes.
func NewTestDatabase(t *testing.T) intake.Database {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CreateTestUser inserts a user row and returns it.
func CreateTestUser(t *testing.T, db intake.Database, id, email string) *model.User {
	t.Helper()

	user := &model.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$10$test-hash-not-a-real-one",
		DisplayName:  "Test User",
		CreatedAt:    FixedClock().Now(),
	}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("failed to create user %s: %v", id, err)
	}
	return user
}
