package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"intake-go/internal/archive"
	"intake-go/internal/auth"
	"intake-go/internal/config"
	"intake-go/internal/database"
	"intake-go/internal/encryption"
	"intake-go/internal/intake"
	"intake-go/internal/model"
	"intake-go/internal/staging"
	"intake-go/internal/vault"
)

// IntakeApp is the application layer between the CLI and IntakeService.
// It constructs all dependencies from config, exposes CLI operations that
// accept user emails instead of user IDs, and manages the DB lifecycle on
// Close.
type IntakeApp struct {
	cfg     *config.Config
	db      intake.Database
	vault   intake.Vault
	staging intake.StagingArea
	service *intake.IntakeService
	auth    *auth.Service
	logger  intake.Logger
	logFile *os.File
}

// NewIntakeApp creates a fully wired IntakeApp from the given config.
// The caller must call Close when done.
func NewIntakeApp(cfg *config.Config) (*IntakeApp, error) {
	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil {
		if ae, ok := enc.(*encryption.AgeEncryptor); ok && !ae.IsConfigured() {
			return nil, fmt.Errorf("encryption keys not found: run \"intake keys init\" first")
		}
		v = vault.NewEncryptingVault(v, enc)
	}

	sa, err := staging.NewStagingAreaFromConfig(cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("creating staging area: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date, run \"intake migrate\": %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	parser := archive.NewZipParser(archive.NewJunkMatcher(cfg.Analyzer.JunkPatterns), 0)

	svc := intake.NewIntakeService(db, v, sa, parser, adapter, intake.RealClock{}, intake.UUIDGenerator{}, intake.Options{
		HighThreshold:  cfg.Dedup.HighThreshold,
		LowThreshold:   cfg.Dedup.LowThreshold,
		CodeExtensions: cfg.Analyzer.CodeExtensions,
		TextExtensions: cfg.Analyzer.TextExtensions,
	})

	secret := os.Getenv("INTAKE_JWT_SECRET")
	if secret == "" {
		secret = cfg.Auth.JWTSecret
	}
	authSvc := auth.NewService(db, []byte(secret), time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute, adapter, intake.RealClock{}, intake.UUIDGenerator{})

	return &IntakeApp{
		cfg:     cfg,
		db:      db,
		vault:   v,
		staging: sa,
		service: svc,
		auth:    authSvc,
		logger:  adapter,
		logFile: logFile,
	}, nil
}

// Config returns the loaded configuration.
func (a *IntakeApp) Config() *config.Config { return a.cfg }

// Service returns the wired intake service.
func (a *IntakeApp) Service() *intake.IntakeService { return a.service }

// Auth returns the wired auth service.
func (a *IntakeApp) Auth() *auth.Service { return a.auth }

// Logger returns the application logger.
func (a *IntakeApp) Logger() intake.Logger { return a.logger }

// TokenConfigured reports whether a JWT signing secret is available,
// either from the config file or the INTAKE_JWT_SECRET environment
// variable.
func (a *IntakeApp) TokenConfigured() bool {
	return os.Getenv("INTAKE_JWT_SECRET") != "" || a.cfg.Auth.JWTSecret != ""
}

// RegisterUser creates a new user account.
func (a *IntakeApp) RegisterUser(email, password, displayName string) (*model.User, error) {
	return a.auth.Register(email, password, displayName)
}

// resolveUser maps a user email to the user record.
func (a *IntakeApp) resolveUser(email string) (*model.User, error) {
	user, err := a.db.FindUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", email)
	}
	return user, nil
}

// ListUploads returns the most recent uploads for the user with the
// given email.
func (a *IntakeApp) ListUploads(email string, limit int) ([]*model.Upload, error) {
	user, err := a.resolveUser(email)
	if err != nil {
		return nil, err
	}
	return a.service.ListUploads(user.ID, limit)
}

// GetUpload returns one upload with its status transition history.
func (a *IntakeApp) GetUpload(email, uploadID string) (*model.Upload, []*model.UploadEvent, error) {
	user, err := a.resolveUser(email)
	if err != nil {
		return nil, nil, err
	}
	upload, err := a.service.GetUpload(user.ID, uploadID)
	if err != nil {
		return nil, nil, err
	}
	events, err := a.service.UploadEvents(user.ID, uploadID)
	if err != nil {
		return nil, nil, err
	}
	return upload, events, nil
}

// ExportArchive streams the upload's stored archive to w.
func (a *IntakeApp) ExportArchive(email, uploadID string, w io.Writer) error {
	user, err := a.resolveUser(email)
	if err != nil {
		return err
	}
	return a.service.ExportArchive(user.ID, uploadID, w)
}

// FailUpload marks an in-flight upload as failed.
func (a *IntakeApp) FailUpload(email, uploadID, reason string) (*model.Upload, error) {
	user, err := a.resolveUser(email)
	if err != nil {
		return nil, err
	}
	return a.service.FailUpload(user.ID, uploadID, reason)
}

// PurgeUpload removes an upload record and its archive blob if no other
// upload references it.
func (a *IntakeApp) PurgeUpload(email, uploadID string) error {
	user, err := a.resolveUser(email)
	if err != nil {
		return err
	}
	return a.service.PurgeUpload(user.ID, uploadID)
}

// Close closes all resources.
func (a *IntakeApp) Close() error {
	var firstErr error

	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
