package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AnshRaj112/mindmesh-backend/internal/middleware"
	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
)

type ProfileResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Profile *models.UserProfile `json:"profile,omitempty"`
}

// GetProfile returns the caller's profile, creating it on first access.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Profiles.EnsureProfile(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Success: true, Profile: p})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Profiles.Update(r.Context(), sessionOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.syncSession(r, p)
	writeJSON(w, http.StatusOK, ProfileResponse{Success: true, Message: "Profile updated", Profile: p})
}

// UploadProfilePhoto replaces the caller's profile photo.
func (h *Handler) UploadProfilePhoto(w http.ResponseWriter, r *http.Request) {
	img, file, ok := readImage(w, r)
	if !ok {
		return
	}
	defer file.Close()

	session := sessionOf(r)
	url, err := h.Profiles.UploadPhoto(r.Context(), session, img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.syncSession(r, &models.UserProfile{UID: session.UID, PhotoURL: url})
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Message: "Photo uploaded", URL: url})
}

// syncSession pushes profile changes into the caller's session. The
// profile write already succeeded, so a failure here is only logged.
func (h *Handler) syncSession(r *http.Request, p *models.UserProfile) {
	if h.Auth == nil {
		return
	}
	if _, err := h.Auth.SyncProfile(r.Context(), middleware.ExtractToken(r), sessionOf(r), p); err != nil {
		slog.Warn("session sync failed", "user_id", p.UID, "err", err)
	}
}
