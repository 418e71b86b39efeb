package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/timeline"
)

// HistoryEntry is a rendered timeline entry with a humanized age.
type HistoryEntry struct {
	timeline.Entry
	RelativeTime string `json:"relative_time,omitempty"`
}

type ChatHistoryResponse struct {
	Success bool           `json:"success"`
	GroupID string         `json:"group_id"`
	Entries []HistoryEntry `json:"entries"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendMessageResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Msg     *models.Message `json:"msg,omitempty"`
}

// ChatHistory returns the latest messages of a group in display order.
// Query params:
//
//	group_id (required)
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	groupID, ok := requireParam(w, r, "group_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Chat.Timeline(ctx, sessionOf(r), groupID, timeline.Options{Location: h.Location})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatHistoryResponse{Success: true, GroupID: groupID, Entries: h.historyEntries(entries)})
}

// historyEntries attaches relative times to rendered entries. Undated
// messages get none.
func (h *Handler) historyEntries(entries []timeline.Entry) []HistoryEntry {
	now := h.Now()
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{Entry: e}
		if !e.Message.CreatedAt.IsZero() {
			out[i].RelativeTime = timeline.RelativeTime(e.Message.CreatedAt, now)
		}
	}
	return out
}

// SendMessage posts a message to a group.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	groupID, ok := requireParam(w, r, "group_id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session := sessionOf(r)
	if !h.SendLimiter.Allow(session.UID) {
		writeFail(w, http.StatusTooManyRequests, "You are sending messages too quickly")
		return
	}
	m, err := h.Chat.Send(r.Context(), session, groupID, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SendMessageResponse{Success: true, Message: "Message sent", Msg: m})
}
