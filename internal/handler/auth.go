package handler

import (
	"net/http"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signup proxies registration to Supabase so the browser never holds
// project keys.
func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.badRequest(w, "email and password are required")
		return
	}

	session, err := h.Supabase.Auth().SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, session)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.badRequest(w, "email and password are required")
		return
	}

	session, err := h.Supabase.Auth().SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, session)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		h.badRequest(w, "refresh_token is required")
		return
	}

	session, err := h.Supabase.Auth().RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, session)
}

// recover triggers a password recovery email. Always responds 202 on
// success so the endpoint does not confirm which emails are registered.
func (h *Handler) recover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		h.badRequest(w, "email is required")
		return
	}

	if err := h.Supabase.Auth().RecoverPassword(r.Context(), req.Email); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusAccepted, map[string]string{"status": "recovery email sent"})
}
