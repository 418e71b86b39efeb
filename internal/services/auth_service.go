package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Credential is a row of the users table.
type Credential struct {
	ID           string
	Email        string
	DisplayName  string
	PhotoURL     string
	PasswordHash string
	CreatedAt    time.Time
}

// CredentialStore persists email/password accounts.
type CredentialStore interface {
	Create(ctx context.Context, email, displayName, passwordHash string) (Credential, error)
	ByEmail(ctx context.Context, email string) (Credential, error)
}

// PostgresCredentials stores accounts in PostgreSQL.
type PostgresCredentials struct {
	db *sql.DB
}

func NewPostgresCredentials(db *sql.DB) *PostgresCredentials {
	return &PostgresCredentials{db: db}
}

func (p *PostgresCredentials) Create(ctx context.Context, email, displayName, passwordHash string) (Credential, error) {
	c := Credential{Email: email, DisplayName: displayName, PasswordHash: passwordHash}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, email, displayName, passwordHash).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return Credential{}, ErrEmailTaken
		}
		return Credential{}, err
	}
	return c, nil
}

func (p *PostgresCredentials) ByEmail(ctx context.Context, email string) (Credential, error) {
	var (
		c     Credential
		photo sql.NullString
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, photo_url, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(&c.ID, &c.Email, &c.DisplayName, &photo, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrInvalidCredentials
	}
	if err != nil {
		return Credential{}, err
	}
	c.PhotoURL = photo.String
	return c, nil
}

// AuthService signs users up and in and resolves bearer tokens into
// AuthSession values.
type AuthService struct {
	creds    CredentialStore
	sessions SessionStore
	profiles *ProfileService
}

func NewAuthService(creds CredentialStore, sessions SessionStore, profiles *ProfileService) *AuthService {
	return &AuthService{creds: creds, sessions: sessions, profiles: profiles}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an account, its profile and a session.
func (a *AuthService) Signup(ctx context.Context, email, password, displayName string) (string, models.AuthSession, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if !emailRegex.MatchString(email) {
		return "", models.AuthSession{}, &utils.ValidationError{Field: "email", Message: "Invalid email address"}
	}
	if len(password) < MinPasswordLength {
		return "", models.AuthSession{}, &utils.ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	if displayName != "" {
		if err := CheckContent("display_name", displayName); err != nil {
			return "", models.AuthSession{}, err
		}
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", models.AuthSession{}, err
	}
	c, err := a.creds.Create(ctx, email, displayName, hash)
	if err != nil {
		return "", models.AuthSession{}, err
	}
	return a.startSession(ctx, c)
}

// Signin verifies the password and starts a new session.
func (a *AuthService) Signin(ctx context.Context, email, password string) (string, models.AuthSession, error) {
	c, err := a.creds.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", models.AuthSession{}, err
	}
	ok, err := utils.VerifyPassword(password, c.PasswordHash)
	if err != nil || !ok {
		return "", models.AuthSession{}, ErrInvalidCredentials
	}
	return a.startSession(ctx, c)
}

func (a *AuthService) startSession(ctx context.Context, c Credential) (string, models.AuthSession, error) {
	session := models.AuthSession{UID: c.ID, DisplayName: c.DisplayName, Email: c.Email, PhotoURL: c.PhotoURL}
	if a.profiles != nil {
		p, err := a.profiles.EnsureProfile(ctx, session)
		if err != nil {
			slog.Warn("ensure profile failed", "user_id", c.ID, "err", err)
		} else {
			session.DisplayName = p.DisplayName
			if p.PhotoURL != "" {
				session.PhotoURL = p.PhotoURL
			}
		}
	}
	token, err := a.sessions.Create(ctx, session)
	if err != nil {
		return "", models.AuthSession{}, fmt.Errorf("create session: %w", err)
	}
	return token, session, nil
}

// Signout invalidates token.
func (a *AuthService) Signout(ctx context.Context, token string) error {
	return a.sessions.Delete(ctx, token)
}

// SyncProfile copies the profile's display name and photo into the
// session behind token, so later writes are attributed to the new values.
func (a *AuthService) SyncProfile(ctx context.Context, token string, session models.AuthSession, p *models.UserProfile) (models.AuthSession, error) {
	if p == nil || p.UID != session.UID {
		return session, ErrUnauthenticated
	}
	if p.DisplayName != "" {
		session.DisplayName = p.DisplayName
	}
	if p.PhotoURL != "" {
		session.PhotoURL = p.PhotoURL
	}
	if err := a.sessions.Update(ctx, token, session); err != nil {
		return session, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// Resolve returns the session for a bearer token.
func (a *AuthService) Resolve(ctx context.Context, token string) (models.AuthSession, error) {
	return a.sessions.Resolve(ctx, token)
}
