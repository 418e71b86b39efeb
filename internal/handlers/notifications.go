package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
)

type UnreadResponse struct {
	Success       bool                  `json:"success"`
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

type MarkAllReadRequest struct {
	IDs []string `json:"ids"`
}

type MarkAllReadResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Result  services.BatchResult `json:"result"`
}

// UnreadNotifications returns the caller's most recent unread
// notifications.
func (h *Handler) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	var tracker services.UnreadTracker
	unread, err := h.Notifications.Unread(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	tracker.Apply(unread)
	writeJSON(w, http.StatusOK, UnreadResponse{Success: true, Notifications: tracker.Items(), UnreadCount: tracker.Count()})
}

// MarkNotificationRead marks a single notification as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Notifications.MarkOneRead(r.Context(), sessionOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Notification marked as read")
}

// MarkAllNotificationsRead marks the given ids as read, or the caller's
// current unread list when the body names none. Partial failures are
// reported per id.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var req MarkAllReadRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeOptional(r.Body, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := sessionOf(r)
	ids := req.IDs
	if len(ids) == 0 {
		var tracker services.UnreadTracker
		unread, err := h.Notifications.Unread(r.Context(), session)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tracker.Apply(unread)
		ids = tracker.IDs()
	}

	res, err := h.Notifications.MarkAllRead(r.Context(), session, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "All notifications marked as read"
	if !res.OK() {
		msg = "Some notifications could not be marked as read"
	}
	writeJSON(w, http.StatusOK, MarkAllReadResponse{Success: res.OK(), Message: msg, Result: res})
}

// decodeOptional decodes a JSON body that may be empty.
func decodeOptional(body io.Reader, v any) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
