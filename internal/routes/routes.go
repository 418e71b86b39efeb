package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnshRaj112/mindmesh-backend/internal/handlers"
	"github.com/AnshRaj112/mindmesh-backend/internal/middleware"
)

// Options selects the cross-cutting middleware installed in front of the
// API.
type Options struct {
	AllowedOrigins []string
	Resolver       middleware.SessionResolver
	// Extra runs after authentication and before routing, e.g. the
	// production security stack or the Redis rate limiter.
	Extra []func(http.Handler) http.Handler
}

// NewRouter builds the application router.
func NewRouter(h *handlers.Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.Authenticate(opts.Resolver))
	r.Use(middleware.RequestLogger)
	for _, mw := range opts.Extra {
		r.Use(mw)
	}

	// Health and metrics are not rate limited by the per-route stack.
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	SetupRoutes(r, h)
	return r
}

func SetupRoutes(r chi.Router, h *handlers.Handler) {
	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/signin", h.Signin)
	r.Post("/api/auth/signout", h.Signout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)

		r.Get("/api/auth/me", h.Me)

		// Groups
		r.Get("/api/groups", h.GetGroups)
		r.Post("/api/groups", h.CreateGroup)
		r.Delete("/api/groups", h.DeleteGroup)
		r.Post("/api/groups/join", h.JoinGroup)
		r.Post("/api/groups/leave", h.LeaveGroup)
		r.Put("/api/groups/privacy", h.SetGroupPrivacy)

		// Chat over HTTP; live updates go through /ws/live
		r.Get("/api/chat/history", h.ChatHistory)
		r.Post("/api/chat/messages", h.SendMessage)

		r.Get("/api/notifications/unread", h.UnreadNotifications)
		r.Post("/api/notifications/read", h.MarkNotificationRead)
		r.Post("/api/notifications/read-all", h.MarkAllNotificationsRead)

		// Idea board
		r.Get("/api/ideas", h.GetIdeas)
		r.Post("/api/ideas", h.CreateIdea)
		r.Put("/api/ideas", h.UpdateIdea)
		r.Delete("/api/ideas", h.DeleteIdea)
		r.Post("/api/ideas/like", h.ToggleIdeaLike)
		r.Post("/api/ideas/comments", h.AddComment)
		r.Put("/api/ideas/comments", h.EditComment)
		r.Delete("/api/ideas/comments", h.DeleteComment)

		r.Get("/api/notes", h.GetNotes)
		r.Post("/api/notes", h.CreateNote)
		r.Put("/api/notes", h.UpdateNote)
		r.Delete("/api/notes", h.DeleteNote)
		r.Post("/api/notes/pin", h.ToggleNotePin)

		r.Get("/api/moodboards", h.GetMoodboards)
		r.Post("/api/moodboards", h.CreateMoodboard)
		r.Delete("/api/moodboards", h.DeleteMoodboard)

		r.Get("/api/profile", h.GetProfile)
		r.Put("/api/profile", h.UpdateProfile)
		r.Post("/api/profile/photo", h.UploadProfilePhoto)

		// WebSocket endpoint for live snapshots and chat sends
		r.Get("/ws/live", h.LiveWebSocket)
	})
}
