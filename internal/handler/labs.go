package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/discovery"
	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
)

type schoolResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

type labResponse struct {
	ID          string `json:"id"`
	SchoolID    string `json:"school_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

type professorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func toSchoolResponse(s lab.School) schoolResponse {
	return schoolResponse{ID: s.ID, Name: s.Name, Domain: s.Domain}
}

func toLabResponse(l lab.Lab) labResponse {
	return labResponse{
		ID:          l.ID,
		SchoolID:    l.SchoolID,
		Name:        l.Name,
		Description: l.Description,
		URL:         l.URL,
	}
}

func (h *Handler) listSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.Labs.ListSchools(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]schoolResponse, 0, len(schools))
	for _, s := range schools {
		out = append(out, toSchoolResponse(s))
	}
	h.respond(w, http.StatusOK, out)
}

func (h *Handler) listSchoolLabs(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "id")
	if _, err := h.Labs.GetSchool(r.Context(), schoolID); err != nil {
		h.respondError(w, r, err)
		return
	}

	labs, err := h.Labs.ListLabs(r.Context(), schoolID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]labResponse, 0, len(labs))
	for _, l := range labs {
		out = append(out, toLabResponse(l))
	}
	h.respond(w, http.StatusOK, out)
}

func (h *Handler) getLab(w http.ResponseWriter, r *http.Request) {
	l, err := h.Labs.GetLab(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toLabResponse(*l))
}

func (h *Handler) listLabProfessors(w http.ResponseWriter, r *http.Request) {
	labID := chi.URLParam(r, "id")
	if _, err := h.Labs.GetLab(r.Context(), labID); err != nil {
		h.respondError(w, r, err)
		return
	}

	profs, err := h.Labs.ListProfessors(r.Context(), labID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]professorResponse, 0, len(profs))
	for _, p := range profs {
		out = append(out, professorResponse{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role})
	}
	h.respond(w, http.StatusOK, out)
}

type matchRequest struct {
	SchoolID string   `json:"school_id,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

type matchResponse struct {
	Lab     labResponse `json:"lab"`
	Score   int         `json:"score"`
	Overlap []string    `json:"overlap"`
}

const defaultMatchLimit = 10

// matchLabs ranks labs by keyword overlap. Keywords default to the terms of
// the caller's profile (interests, skills, major).
func (h *Handler) matchLabs(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}

	keywords := req.Keywords
	if len(keywords) == 0 {
		user := httpmiddleware.UserFromContext(r.Context())
		p, err := h.Profiles.Get(r.Context(), user.ID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		keywords = p.Keywords()
	}
	if len(keywords) == 0 {
		h.badRequest(w, "no keywords given and profile has none")
		return
	}

	labs, err := h.Labs.ListLabs(r.Context(), req.SchoolID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultMatchLimit
	}

	matches := lab.RankByKeywords(keywords, labs, limit)
	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchResponse{
			Lab:     toLabResponse(m.Lab),
			Score:   m.Score,
			Overlap: m.Overlap,
		})
	}
	h.respond(w, http.StatusOK, out)
}

type discoverRequest struct {
	College string `json:"college"`
	Major   string `json:"major,omitempty"`
}

func (h *Handler) discoverLabs(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.College) == "" {
		h.respond(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "validation_failed",
			Message: "missing required field 'college'",
		})
		return
	}

	result, err := h.Discovery.Discover(r.Context(), req.College, req.Major)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.persistDiscovery(r, req.College, result)
	h.respond(w, http.StatusOK, result)
}

// persistDiscovery stores discovered labs so later match and email requests
// can reuse them. Failures are logged, not surfaced: the crawl result is
// still good for the caller.
func (h *Handler) persistDiscovery(r *http.Request, college string, result *discovery.Result) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	schoolID, err := h.Labs.UpsertSchool(ctx, &lab.School{
		Name:   college,
		Domain: hostOf(result.ResearchURL),
	})
	if err != nil {
		lg.Warn("persist school failed", zap.String("college", college), zap.Error(err))
		return
	}

	for i := range result.Labs {
		dl := &result.Labs[i]
		labID, err := h.Labs.UpsertLab(ctx, &lab.Lab{
			SchoolID:    schoolID,
			Name:        dl.Name,
			Description: dl.Description,
			URL:         dl.URL,
		})
		if err != nil {
			lg.Warn("persist lab failed", zap.String("lab", dl.Name), zap.Error(err))
			continue
		}
		for _, f := range dl.Faculty {
			err := h.Labs.UpsertProfessor(ctx, &lab.Professor{
				LabID: labID,
				Name:  f.Name,
				Email: f.Email,
				Role:  f.Role,
			})
			if err != nil {
				lg.Warn("persist professor failed", zap.String("name", f.Name), zap.Error(err))
			}
		}
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
