// Package auth handles user accounts and session lifecycle. It depends only
// on the database manager's generic statement contract, not on its schema
// helpers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/anshuman365/gofusion/internal/database"
	"github.com/anshuman365/gofusion/internal/security"
)

const (
	// DefaultSessionDuration is how long sessions last unless configured.
	DefaultSessionDuration = 7 * 24 * time.Hour
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
	// BcryptCost is the bcrypt cost factor.
	BcryptCost = 12
)

var (
	// ErrInvalidCredentials is returned when authentication fails. It does
	// not distinguish unknown users from wrong passwords.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUserExists is returned when the username or email is taken.
	ErrUserExists = errors.New("auth: username or email already exists")
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("auth: invalid email format")
	// ErrWeakPassword is returned for too-short passwords.
	ErrWeakPassword = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
)

// User is a registered account.
type User struct {
	ID        int64
	Username  string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is an authenticated session keyed by its opaque token.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store is the slice of the database manager contract this service needs.
type Store interface {
	FetchOne(ctx context.Context, query string, args ...any) (database.Record, error)
	Insert(ctx context.Context, table string, data database.Record) (int64, error)
	Update(ctx context.Context, table string, fields database.Record, where string, whereArgs ...any) (int64, error)
	Delete(ctx context.Context, table string, where string, args ...any) (int64, error)
}

// Service provides account and session operations over a Store.
type Service struct {
	db         Store
	sessionTTL time.Duration
}

// NewService creates an auth service. A non-positive sessionTTL selects
// DefaultSessionDuration.
func NewService(db Store, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionDuration
	}
	return &Service{db: db, sessionTTL: sessionTTL}
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateUser registers a new account after validating the email, password
// length, and uniqueness of username and email.
func (s *Service) CreateUser(ctx context.Context, username, email, password string) (*User, error) {
	if !security.ValidateEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := s.db.FetchOne(ctx, "SELECT id FROM users WHERE username = ? OR email = ?", username, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	id, err := s.db.Insert(ctx, "users", database.Record{
		"username":      username,
		"email":         email,
		"password_hash": hash,
		"is_active":     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("username", username).Int64("user_id", id).Msg("User created")
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user, or nil when none exists.
func (s *Service) GetUserByID(ctx context.Context, id int64) (*User, error) {
	rec, err := s.db.FetchOne(ctx, `
		SELECT id, username, email, is_active, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

// GetUserByUsername retrieves a user by username, or nil when none exists.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	rec, err := s.db.FetchOne(ctx, `
		SELECT id, username, email, is_active, created_at, updated_at
		FROM users WHERE username = ?
	`, username)
	if err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

// Authenticate verifies credentials for an active account, matching the
// login against username or email. Failures of either kind yield
// ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	rec, err := s.db.FetchOne(ctx, `
		SELECT id, username, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE (username = ? OR email = ?) AND is_active = 1
	`, login, login)
	if err != nil {
		return nil, err
	}
	if rec == nil || !CheckPassword(password, rec.String("password_hash")) {
		return nil, ErrInvalidCredentials
	}

	user := userFromRecord(rec)

	if _, err := s.db.Update(ctx, "users", database.Record{"updated_at": time.Now()}, "id = ?", user.ID); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to touch user on login")
	}

	return user, nil
}

// CreateSession opens a session for the user and returns it with a fresh
// opaque token.
func (s *Service) CreateSession(ctx context.Context, userID int64) (*Session, error) {
	token := uuid.NewString()
	now := time.Now()
	expiresAt := now.Add(s.sessionTTL)

	id, err := s.db.Insert(ctx, "sessions", database.Record{
		"user_id":       userID,
		"session_token": token,
		"expires_at":    expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// ValidateSession returns the live session for a token, or nil when the
// token is unknown or expired. Expired sessions are deleted on sight.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	rec, err := s.db.FetchOne(ctx, `
		SELECT id, user_id, session_token, expires_at, created_at
		FROM sessions WHERE session_token = ?
	`, token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	session := &Session{
		ID:        rec.Int64("id"),
		UserID:    rec.Int64("user_id"),
		Token:     rec.String("session_token"),
		ExpiresAt: rec.Time("expires_at"),
		CreatedAt: rec.Time("created_at"),
	}

	if time.Now().After(session.ExpiresAt) {
		if _, err := s.db.Delete(ctx, "sessions", "session_token = ?", token); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, nil
	}

	return session, nil
}

// DeleteSession removes a session by token.
func (s *Service) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.Delete(ctx, "sessions", "session_token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ExtendSession pushes a session's expiry out by the configured duration.
func (s *Service) ExtendSession(ctx context.Context, token string) error {
	expiresAt := time.Now().Add(s.sessionTTL)
	if _, err := s.db.Update(ctx, "sessions", database.Record{"expires_at": expiresAt}, "session_token = ?", token); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

func userFromRecord(rec database.Record) *User {
	if rec == nil {
		return nil
	}
	return &User{
		ID:        rec.Int64("id"),
		Username:  rec.String("username"),
		Email:     rec.String("email"),
		IsActive:  rec.Bool("is_active"),
		CreatedAt: rec.Time("created_at"),
		UpdatedAt: rec.Time("updated_at"),
	}
}
