package handlers

import (
	"net/http"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
)

type IdeaResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Idea    *models.Idea `json:"idea,omitempty"`
}

type GetIdeasResponse struct {
	Success bool          `json:"success"`
	Ideas   []models.Idea `json:"ideas"`
	Total   int           `json:"total"`
}

type LikeResponse struct {
	Success bool `json:"success"`
	Likes   int  `json:"likes"`
}

type CommentRequest struct {
	Text string `json:"text"`
}

type CommentResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Comment *models.Comment `json:"comment,omitempty"`
}

// GetIdeas lists ideas, optionally filtered by ?category=.
func (h *Handler) GetIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.Ideas.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ideas == nil {
		ideas = []models.Idea{}
	}
	writeJSON(w, http.StatusOK, GetIdeasResponse{Success: true, Ideas: ideas, Total: len(ideas)})
}

func (h *Handler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	var req services.IdeaInput
	if !decodeJSON(w, r, &req) {
		return
	}
	idea, err := h.Ideas.Create(r.Context(), sessionOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IdeaResponse{Success: true, Message: "Idea shared", Idea: idea})
}

func (h *Handler) UpdateIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	var req services.IdeaInput
	if !decodeJSON(w, r, &req) {
		return
	}
	idea, err := h.Ideas.Update(r.Context(), sessionOf(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IdeaResponse{Success: true, Message: "Idea updated", Idea: idea})
}

func (h *Handler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Ideas.Delete(r.Context(), sessionOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Idea deleted")
}

// ToggleIdeaLike likes or unlikes an idea for the caller.
func (h *Handler) ToggleIdeaLike(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	likes, err := h.Ideas.ToggleLike(r.Context(), sessionOf(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LikeResponse{Success: true, Likes: likes})
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	ideaID, ok := requireParam(w, r, "idea_id")
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.Ideas.AddComment(r.Context(), sessionOf(r), ideaID, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CommentResponse{Success: true, Message: "Comment added", Comment: c})
}

func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request) {
	ideaID, ok := requireParam(w, r, "idea_id")
	if !ok {
		return
	}
	commentID, ok := requireParam(w, r, "comment_id")
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Ideas.EditComment(r.Context(), sessionOf(r), ideaID, commentID, req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Comment updated")
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ideaID, ok := requireParam(w, r, "idea_id")
	if !ok {
		return
	}
	commentID, ok := requireParam(w, r, "comment_id")
	if !ok {
		return
	}
	if err := h.Ideas.DeleteComment(r.Context(), sessionOf(r), ideaID, commentID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Comment deleted")
}
