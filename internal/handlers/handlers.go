package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AnshRaj112/mindmesh-backend/internal/middleware"
	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/realtime"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators shared by every handler.
type Deps struct {
	Auth          *services.AuthService
	Groups        *services.GroupService
	Chat          *services.ChatService
	Notifications *services.NotificationService
	Ideas         *services.IdeaService
	Notes         *services.NoteService
	Moodboards    *services.MoodboardService
	Profiles      *services.ProfileService

	// Store, Feed and Cache back the live queries of /ws/live. Cache may
	// be nil.
	Store store.Store
	Feed  realtime.Feed
	Cache realtime.SnapshotCache

	SendLimiter *middleware.SendLimiter
	Location    *time.Location
	Now         func() time.Time
	// AllowedOrigins restricts browser WebSocket upgrades. Empty allows
	// any origin.
	AllowedOrigins []string
}

// Handler serves the HTTP and WebSocket API.
type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.SendLimiter == nil {
		d.SendLimiter = middleware.NewSendLimiter()
	}
	return &Handler{Deps: d}
}

// APIResponse is the envelope of responses that carry no payload.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func sessionOf(r *http.Request) models.AuthSession {
	return middleware.SessionFrom(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{Success: false, Message: message})
}

func writeOK(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: message})
}

// writeError maps a service error onto a status code. Unknown errors are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "user_id", sessionOf(r).UID, "err", err)
	}
	writeFail(w, status, message)
}

func statusFor(err error) (int, string) {
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Message
	}

	switch {
	case errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrSessionNotFound):
		return http.StatusUnauthorized, capitalize(err.Error())

	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNotMember),
		errors.Is(err, services.ErrOwnerCannotLeave),
		errors.Is(err, realtime.ErrPermissionDenied):
		return http.StatusForbidden, capitalize(err.Error())

	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrJoinCodeNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrIdeaNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrNoteNotFound),
		errors.Is(err, services.ErrMoodboardNotFound),
		errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, capitalize(err.Error())

	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrNotPrivate):
		return http.StatusConflict, capitalize(err.Error())

	case errors.Is(err, services.ErrUploadsDisabled):
		return http.StatusServiceUnavailable, capitalize(err.Error())

	case errors.Is(err, store.ErrInvalidQuery):
		return http.StatusBadRequest, "Invalid query"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// decodeJSON reads a JSON body into v, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// requireParam reads a query parameter, answering 400 when it is empty.
func requireParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		writeFail(w, http.StatusBadRequest, name+" is required")
		return "", false
	}
	return v, true
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
