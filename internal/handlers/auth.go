package handlers

import (
	"net/http"

	"github.com/AnshRaj112/mindmesh-backend/internal/middleware"
	"github.com/AnshRaj112/mindmesh-backend/internal/models"
)

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Token   string              `json:"token,omitempty"`
	User    *models.AuthSession `json:"user,omitempty"`
}

// Signup creates an account and signs it in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, session, err := h.Auth.Signup(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created",
		Token:   token,
		User:    &session,
	})
}

func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, session, err := h.Auth.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in",
		Token:   token,
		User:    &session,
	})
}

// Signout revokes the request's session token.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token == "" {
		writeFail(w, http.StatusUnauthorized, "You must be signed in")
		return
	}
	if err := h.Auth.Signout(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Signed out")
}

// Me returns the caller's session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session := sessionOf(r)
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "OK", User: &session})
}
