// Package handler implements the HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gradmate/gradmate/internal/discovery"
	"github.com/gradmate/gradmate/internal/domain/application"
	"github.com/gradmate/gradmate/internal/domain/email"
	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/internal/domain/practice"
	"github.com/gradmate/gradmate/internal/domain/profile"
	"github.com/gradmate/gradmate/internal/domain/resume"
	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/internal/queue"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
	"github.com/gradmate/gradmate/pkg/supabase"
)

// EmailGenerator drafts outreach emails. Implemented by email.Service.
type EmailGenerator interface {
	Generate(ctx context.Context, req *email.Request) (*email.Draft, error)
}

// LabDiscoverer crawls a college for its labs. Implemented by discovery.Service.
type LabDiscoverer interface {
	Discover(ctx context.Context, college, major string) (*discovery.Result, error)
}

// ResumePublisher enqueues résumé parsing jobs. Implemented by queue.Publisher.
type ResumePublisher interface {
	PublishResumeJob(ctx context.Context, job queue.ResumeJob) error
}

// Handler carries the dependencies of every route.
type Handler struct {
	Labs         lab.Repository
	Profiles     profile.Repository
	Resumes      resume.Repository
	Practice     practice.Repository
	Applications application.Repository

	Supabase *supabase.Client
	Bucket   string
	Queue    ResumePublisher

	Emails    EmailGenerator
	Discovery LabDiscoverer

	// Planner generates practice study plans. Optional.
	Planner llm.Client

	// Debug includes error detail in 500 responses.
	Debug bool
}

// Routes builds the /api/v1 router. userAuth guards the student endpoints,
// keyAuth the AI proxy endpoints.
func (h *Handler) Routes(userAuth, keyAuth httpmiddleware.Middleware) http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", h.signup)
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)
		r.Post("/auth/recover", h.recover)

		r.Get("/schools", h.listSchools)
		r.Get("/schools/{id}/labs", h.listSchoolLabs)
		r.Get("/labs/{id}", h.getLab)
		r.Get("/labs/{id}/professors", h.listLabProfessors)

		r.Group(func(r chi.Router) {
			r.Use(userAuth)

			r.Post("/labs/match", h.matchLabs)

			r.Get("/profile", h.getProfile)
			r.Put("/profile", h.putProfile)

			r.Post("/resumes", h.uploadResume)
			r.Get("/resumes", h.listResumes)
			r.Get("/resumes/{id}", h.getResume)
			r.Delete("/resumes/{id}", h.deleteResume)

			r.Post("/practice/attempts", h.submitAttempt)
			r.Get("/practice/attempts", h.listAttempts)
			r.Get("/practice/attempts/{id}", h.getAttempt)

			r.Get("/applications", h.listApplications)
			r.Post("/applications", h.createApplication)
			r.Patch("/applications/{id}", h.updateApplication)
			r.Delete("/applications/{id}", h.deleteApplication)
		})

		r.Group(func(r chi.Router) {
			r.Use(keyAuth)

			r.Post("/emails/generate", h.generateEmail)
			r.Post("/labs/discover", h.discoverLabs)
		})
	})

	return r
}
