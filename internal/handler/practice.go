package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/domain/practice"
	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
)

type attemptRequest struct {
	Exam      practice.Exam      `json:"exam"`
	Sections  []practice.Section `json:"sections"`
	StudyPlan bool               `json:"study_plan,omitempty"`
}

type attemptResponse struct {
	ID        string             `json:"id"`
	Exam      practice.Exam      `json:"exam"`
	Sections  []practice.Section `json:"sections,omitempty"`
	Analysis  practice.Analysis  `json:"analysis"`
	CreatedAt time.Time          `json:"created_at"`
}

func toAttemptResponse(a *practice.Attempt, withSections bool) attemptResponse {
	resp := attemptResponse{
		ID:        a.ID,
		Exam:      a.Exam,
		Analysis:  a.Analysis,
		CreatedAt: a.CreatedAt,
	}
	if withSections {
		resp.Sections = a.Sections
	}
	return resp
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	var req attemptRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}

	analysis, err := practice.Analyze(req.Exam, req.Sections)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if req.StudyPlan && h.Planner != nil && len(analysis.WeakestTopics) > 0 {
		plan, err := h.Planner.Complete(r.Context(), studyPlanRequest(analysis))
		if err != nil {
			// The analysis stands on its own; skip the plan.
			zctx.From(r.Context()).Warn("study plan generation failed", zap.Error(err))
		} else {
			analysis.StudyPlan = plan
		}
	}

	attempt := &practice.Attempt{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Exam:     req.Exam,
		Sections: req.Sections,
		Analysis: analysis,
	}
	if err := h.Practice.Create(r.Context(), attempt); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusCreated, toAttemptResponse(attempt, false))
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	attempts, err := h.Practice.List(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]attemptResponse, 0, len(attempts))
	for i := range attempts {
		out = append(out, toAttemptResponse(&attempts[i], false))
	}
	h.respond(w, http.StatusOK, out)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	attempt, err := h.Practice.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toAttemptResponse(attempt, true))
}

func studyPlanRequest(a practice.Analysis) llm.Request {
	exam := strings.ToUpper(string(a.Exam))
	var sb strings.Builder
	fmt.Fprintf(&sb, "A student scored %d composite on a practice %s.\n", a.Composite, exam)
	sb.WriteString("Their weakest topics by accuracy were:\n")
	for _, t := range a.Topics {
		for _, weak := range a.WeakestTopics {
			if t.Topic == weak {
				fmt.Fprintf(&sb, "- %s: %d/%d correct\n", t.Topic, t.Correct, t.Total)
			}
		}
	}
	sb.WriteString("\nWrite a one-week study plan focused on these topics.")

	return llm.Request{
		System:      "You are a test prep tutor for high school students. Be specific and encouraging. Answer in short bullet points.",
		Prompt:      sb.String(),
		Temperature: 0.5,
		MaxTokens:   400,
	}
}
