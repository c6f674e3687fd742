package handler

import (
	"net/http"

	"github.com/gradmate/gradmate/internal/domain/email"
)

func (h *Handler) generateEmail(w http.ResponseWriter, r *http.Request) {
	var req email.Request
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}

	draft, err := h.Emails.Generate(r.Context(), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, draft)
}
