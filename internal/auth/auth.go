// Package auth implements account registration, password verification
// and JWT issuance for the intake API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"intake-go/internal/intake"
	"intake-go/internal/model"
)

// ErrInvalidCredentials is returned on login when the email is unknown or
// the password does not match. The two cases are deliberately
// indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned when a bearer token fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// TokenClaims are the JWT claims carried by intake access tokens.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies access tokens and manages user accounts.
type Service struct {
	database intake.Database
	secret   []byte
	tokenTTL time.Duration
	logger   intake.Logger
	clock    intake.Clock
	idgen    intake.IDGenerator
}

// NewService creates an auth service. The secret signs HS256 tokens; it
// may be empty for account-only use, in which case Login and VerifyToken
// fail until a secret is configured.
func NewService(database intake.Database, secret []byte, tokenTTL time.Duration, logger intake.Logger, clock intake.Clock, idgen intake.IDGenerator) *Service {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{
		database: database,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Register creates a new user account with a bcrypt password hash.
func (s *Service) Register(email, password, displayName string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", intake.ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", intake.ErrInvalidInput, MinPasswordLength)
	}

	existing, err := s.database.FindUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("checking for existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %s is already registered", intake.ErrConflict, email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		ID:           s.idgen.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.database.CreateUser(user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login verifies the credentials and returns a signed token plus its
// expiry time.
func (s *Service) Login(email, password string) (string, *model.User, time.Time, error) {
	if len(s.secret) == 0 {
		return "", nil, time.Time{}, fmt.Errorf("jwt secret not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.database.FindUserByEmail(email)
	if err != nil {
		return "", nil, time.Time{}, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return "", nil, time.Time{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, time.Time{}, ErrInvalidCredentials
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return signed, user, expiresAt, nil
}

// VerifyToken parses and validates a bearer token and returns its claims.
func (s *Service) VerifyToken(tokenString string) (*TokenClaims, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
