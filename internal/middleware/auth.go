package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
)

// SessionResolver turns an opaque session token into the caller's identity.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (models.AuthSession, error)
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s models.AuthSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by Authenticate. The zero
// AuthSession is returned for anonymous requests.
func SessionFrom(ctx context.Context) models.AuthSession {
	s, _ := ctx.Value(sessionKey{}).(models.AuthSession)
	return s
}

// ExtractToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter that browser WebSocket clients use.
func ExtractToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate resolves the request's token, if any, and stores the
// session in the request context. Requests with a missing or expired
// token continue anonymously.
func Authenticate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			session, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, services.ErrSessionNotFound) {
					slog.Warn("session lookup failed", "path", r.URL.Path, "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireSession rejects anonymous requests with 401. Use after
// Authenticate.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFrom(r.Context()).Valid() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"You must be signed in"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
