package handlers

import (
	"net/http"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
)

type NoteResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Note    *models.Note `json:"note,omitempty"`
}

type GetNotesResponse struct {
	Success bool          `json:"success"`
	Notes   []models.Note `json:"notes"`
	Total   int           `json:"total"`
}

type PinResponse struct {
	Success bool `json:"success"`
	Pinned  bool `json:"pinned"`
}

// GetNotes lists the caller's notes, pinned first.
func (h *Handler) GetNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.Notes.List(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, GetNotesResponse{Success: true, Notes: notes, Total: len(notes)})
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req services.NoteInput
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.Notes.Create(r.Context(), sessionOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NoteResponse{Success: true, Message: "Note created", Note: n})
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	var req services.NoteInput
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.Notes.Update(r.Context(), sessionOf(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Success: true, Message: "Note updated", Note: n})
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Notes.Delete(r.Context(), sessionOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Note deleted")
}

func (h *Handler) ToggleNotePin(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	pinned, err := h.Notes.TogglePin(r.Context(), sessionOf(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PinResponse{Success: true, Pinned: pinned})
}
