package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionStore maps opaque bearer tokens to AuthSession values.
type SessionStore interface {
	Create(ctx context.Context, s models.AuthSession) (string, error)
	Resolve(ctx context.Context, token string) (models.AuthSession, error)
	// Update replaces the session stored under an existing token without
	// extending its lifetime.
	Update(ctx context.Context, token string, s models.AuthSession) error
	Delete(ctx context.Context, token string) error
}

// RedisSessions keeps one session per user in Redis. Signing in again
// invalidates the previous token and restarts the 7-day timer.
type RedisSessions struct {
	client *redis.Client
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (r *RedisSessions) Create(ctx context.Context, s models.AuthSession) (string, error) {
	if err := r.invalidateUser(ctx, s.UID); err != nil {
		return "", err
	}

	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, data, SessionDuration)
	pipe.Set(ctx, UserSessionKeyPrefix+s.UID, token, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisSessions) Resolve(ctx context.Context, token string) (models.AuthSession, error) {
	if token == "" {
		return models.AuthSession{}, ErrSessionNotFound
	}
	data, err := r.client.Get(ctx, SessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.AuthSession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.AuthSession{}, err
	}
	var s models.AuthSession
	if err := json.Unmarshal(data, &s); err != nil || !s.Valid() {
		return models.AuthSession{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *RedisSessions) Update(ctx context.Context, token string, s models.AuthSession) error {
	if token == "" {
		return ErrSessionNotFound
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	err = r.client.SetArgs(ctx, SessionKeyPrefix+token, data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	return err
}

func (r *RedisSessions) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	s, err := r.Resolve(ctx, token)
	if err == nil {
		r.client.Del(ctx, UserSessionKeyPrefix+s.UID)
	}
	return r.client.Del(ctx, SessionKeyPrefix+token).Err()
}

func (r *RedisSessions) invalidateUser(ctx context.Context, uid string) error {
	token, err := r.client.Get(ctx, UserSessionKeyPrefix+uid).Result()
	if err == nil && token != "" {
		r.client.Del(ctx, SessionKeyPrefix+token)
	}
	return r.client.Del(ctx, UserSessionKeyPrefix+uid).Err()
}
