package handlers

import (
	"net/http"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
)

type GroupResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Group   *models.Group `json:"group,omitempty"`
}

type GetGroupsResponse struct {
	Success bool           `json:"success"`
	Groups  []models.Group `json:"groups"`
	Total   int            `json:"total"`
}

type JoinGroupRequest struct {
	JoinCode string `json:"join_code"`
}

type LeaveGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GroupPrivacyRequest struct {
	GroupID   string `json:"group_id"`
	IsPrivate bool   `json:"is_private"`
}

// GetGroups lists public groups and the caller's private groups.
func (h *Handler) GetGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Groups.List(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GetGroupsResponse{Success: true, Groups: groups, Total: len(groups)})
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req services.CreateGroupInput
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.Groups.Create(r.Context(), sessionOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, GroupResponse{Success: true, Message: "Group created", Group: g})
}

// DeleteGroup removes a group. Owner only.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Groups.Delete(r.Context(), sessionOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Group deleted")
}

// JoinGroup joins a private group by its join code.
func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var req JoinGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session := sessionOf(r)
	g, err := h.Groups.Join(r.Context(), session, req.JoinCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	visible := services.Visible([]models.Group{*g}, session.UID)
	writeJSON(w, http.StatusOK, GroupResponse{Success: true, Message: "Joined group", Group: &visible[0]})
}

func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	var req LeaveGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Groups.Leave(r.Context(), sessionOf(r), req.GroupID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Left group")
}

// SetGroupPrivacy switches a group between public and private. Owner only.
func (h *Handler) SetGroupPrivacy(w http.ResponseWriter, r *http.Request) {
	var req GroupPrivacyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.Groups.SetPrivacy(r.Context(), sessionOf(r), req.GroupID, req.IsPrivate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupResponse{Success: true, Message: "Group updated", Group: g})
}
