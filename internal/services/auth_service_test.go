package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

type memCredentials struct {
	mu      sync.Mutex
	byEmail map[string]Credential
}

func (m *memCredentials) Create(ctx context.Context, email, displayName, hash string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byEmail == nil {
		m.byEmail = make(map[string]Credential)
	}
	if _, ok := m.byEmail[email]; ok {
		return Credential{}, ErrEmailTaken
	}
	c := Credential{
		ID:           fmt.Sprintf("user-%d", len(m.byEmail)+1),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	m.byEmail[email] = c
	return c, nil
}

func (m *memCredentials) ByEmail(ctx context.Context, email string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byEmail[email]
	if !ok {
		return Credential{}, ErrInvalidCredentials
	}
	return c, nil
}

type memSessions struct {
	mu     sync.Mutex
	tokens map[string]models.AuthSession
	n      int
}

func (m *memSessions) Create(ctx context.Context, s models.AuthSession) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]models.AuthSession)
	}
	m.n++
	token := fmt.Sprintf("token-%d", m.n)
	m.tokens[token] = s
	return token, nil
}

func (m *memSessions) Resolve(ctx context.Context, token string) (models.AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.tokens[token]
	if !ok {
		return models.AuthSession{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) Update(ctx context.Context, token string, s models.AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; !ok {
		return ErrSessionNotFound
	}
	m.tokens[token] = s
	return nil
}

func (m *memSessions) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	newAuth := func() (*AuthService, *store.MemoryStore) {
		st := store.NewMemoryStore()
		return NewAuthService(&memCredentials{}, &memSessions{}, NewProfileService(st, nil)), st
	}

	t.Run("Signup creates a session and a profile", func(t *testing.T) {
		auth, st := newAuth()
		token, session, err := auth.Signup(ctx, " Dana@Example.com ", "secret123", "")
		if err != nil {
			t.Fatalf("Signup failed: %v", err)
		}
		if session.Email != "dana@example.com" || session.Name() != "dana" {
			t.Errorf("Unexpected session: %+v", session)
		}
		resolved, err := auth.Resolve(ctx, token)
		if err != nil || resolved.UID != session.UID {
			t.Errorf("Expected token to resolve, got %+v, %v", resolved, err)
		}
		if st.Count(models.CollectionUsers) != 1 {
			t.Error("Expected a profile to be created")
		}
	})

	t.Run("SyncProfile rewrites the stored session", func(t *testing.T) {
		auth, _ := newAuth()
		token, session, err := auth.Signup(ctx, "erin@example.com", "secret123", "Erin")
		if err != nil {
			t.Fatalf("Signup failed: %v", err)
		}
		p := &models.UserProfile{UID: session.UID, DisplayName: "Erin B", PhotoURL: "https://img/erin.png"}
		if _, err := auth.SyncProfile(ctx, token, session, p); err != nil {
			t.Fatalf("SyncProfile failed: %v", err)
		}
		resolved, _ := auth.Resolve(ctx, token)
		if resolved.DisplayName != "Erin B" || resolved.PhotoURL != "https://img/erin.png" || resolved.Email != "erin@example.com" {
			t.Errorf("Unexpected session after sync: %+v", resolved)
		}

		other := &models.UserProfile{UID: "someone-else", DisplayName: "Mallory"}
		if _, err := auth.SyncProfile(ctx, token, session, other); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Expected ErrUnauthenticated for another user's profile, got %v", err)
		}
		if _, err := auth.SyncProfile(ctx, "stale-token", session, p); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound for unknown token, got %v", err)
		}
	})

	t.Run("Signup validates input", func(t *testing.T) {
		auth, _ := newAuth()
		var verr *utils.ValidationError
		if _, _, err := auth.Signup(ctx, "not-an-email", "secret123", ""); !errors.As(err, &verr) || verr.Field != "email" {
			t.Errorf("Expected email ValidationError, got %v", err)
		}
		if _, _, err := auth.Signup(ctx, "a@b.co", "123", ""); !errors.As(err, &verr) || verr.Field != "password" {
			t.Errorf("Expected password ValidationError, got %v", err)
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		auth, _ := newAuth()
		_, _, _ = auth.Signup(ctx, "a@b.co", "secret123", "A")
		if _, _, err := auth.Signup(ctx, "A@B.co", "secret123", "A"); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("Signin checks the password", func(t *testing.T) {
		auth, _ := newAuth()
		_, _, _ = auth.Signup(ctx, "a@b.co", "secret123", "Ann")
		if _, _, err := auth.Signin(ctx, "a@b.co", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
		if _, _, err := auth.Signin(ctx, "nobody@b.co", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
		token, session, err := auth.Signin(ctx, "a@b.co", "secret123")
		if err != nil || session.DisplayName != "Ann" {
			t.Fatalf("Signin failed: %+v, %v", session, err)
		}

		if err := auth.Signout(ctx, token); err != nil {
			t.Fatalf("Signout failed: %v", err)
		}
		if _, err := auth.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound after signout, got %v", err)
		}
	})
}
