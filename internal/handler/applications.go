package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gradmate/gradmate/internal/domain/application"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
)

type applicationRequest struct {
	Company   string             `json:"company"`
	Role      string             `json:"role"`
	Location  string             `json:"location,omitempty"`
	URL       string             `json:"url,omitempty"`
	Status    application.Status `json:"status,omitempty"`
	Deadline  *time.Time         `json:"deadline,omitempty"`
	AppliedAt *time.Time         `json:"applied_at,omitempty"`
	Notes     string             `json:"notes,omitempty"`
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	status := application.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.respondError(w, r, application.ErrInvalidStatus)
		return
	}

	apps, err := h.Applications.List(r.Context(), user.ID, status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, apps)
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	var req applicationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	if req.Status == "" {
		req.Status = application.StatusInterested
	}

	app := &application.Application{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Company:   req.Company,
		Role:      req.Role,
		Location:  req.Location,
		URL:       req.URL,
		Status:    req.Status,
		Deadline:  req.Deadline,
		AppliedAt: req.AppliedAt,
		Notes:     req.Notes,
	}
	if err := app.Validate(); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Applications.Create(r.Context(), app); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, app)
}

// applicationPatch distinguishes absent fields from explicit zero values.
type applicationPatch struct {
	Company   *string             `json:"company,omitempty"`
	Role      *string             `json:"role,omitempty"`
	Location  *string             `json:"location,omitempty"`
	URL       *string             `json:"url,omitempty"`
	Status    *application.Status `json:"status,omitempty"`
	Deadline  *time.Time          `json:"deadline,omitempty"`
	AppliedAt *time.Time          `json:"applied_at,omitempty"`
	Notes     *string             `json:"notes,omitempty"`
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	app, err := h.Applications.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var patch applicationPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}

	if patch.Company != nil {
		app.Company = *patch.Company
	}
	if patch.Role != nil {
		app.Role = *patch.Role
	}
	if patch.Location != nil {
		app.Location = *patch.Location
	}
	if patch.URL != nil {
		app.URL = *patch.URL
	}
	if patch.Status != nil {
		app.Status = *patch.Status
	}
	if patch.Deadline != nil {
		app.Deadline = patch.Deadline
	}
	if patch.AppliedAt != nil {
		app.AppliedAt = patch.AppliedAt
	}
	if patch.Notes != nil {
		app.Notes = *patch.Notes
	}

	if err := app.Validate(); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Applications.Update(r.Context(), app); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, app)
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	if err := h.Applications.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusNoContent, nil)
}
