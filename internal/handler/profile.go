package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gradmate/gradmate/internal/domain/profile"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
)

type profilePayload struct {
	FullName       string            `json:"full_name"`
	CurrentSchool  string            `json:"current_school,omitempty"`
	GraduationYear string            `json:"graduation_year,omitempty"`
	GPA            *decimal.Decimal  `json:"gpa,omitempty"`
	Major          string            `json:"major,omitempty"`
	Minor          string            `json:"minor,omitempty"`
	Interests      []string          `json:"interests,omitempty"`
	Skills         []string          `json:"skills,omitempty"`
	Certifications []string          `json:"certifications,omitempty"`
	Projects       []profile.Project `json:"projects,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at,omitzero"`
}

func toProfilePayload(p *profile.Profile) profilePayload {
	return profilePayload{
		FullName:       p.FullName,
		CurrentSchool:  p.CurrentSchool,
		GraduationYear: p.GraduationYear,
		GPA:            p.GPA,
		Major:          p.Major,
		Minor:          p.Minor,
		Interests:      p.Interests,
		Skills:         p.Skills,
		Certifications: p.Certifications,
		Projects:       p.Projects,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	p, err := h.Profiles.Get(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toProfilePayload(p))
}

// putProfile replaces the caller's profile wholesale. Omitted fields clear.
func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	var req profilePayload
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}

	p := &profile.Profile{
		ID:             user.ID,
		FullName:       req.FullName,
		CurrentSchool:  req.CurrentSchool,
		GraduationYear: req.GraduationYear,
		GPA:            req.GPA,
		Major:          req.Major,
		Minor:          req.Minor,
		Interests:      req.Interests,
		Skills:         req.Skills,
		Certifications: req.Certifications,
		Projects:       req.Projects,
	}
	if err := h.Profiles.Upsert(r.Context(), p); err != nil {
		h.respondError(w, r, err)
		return
	}

	stored, err := h.Profiles.Get(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toProfilePayload(stored))
}
