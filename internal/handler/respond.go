package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/discovery"
	"github.com/gradmate/gradmate/internal/domain/application"
	"github.com/gradmate/gradmate/internal/domain/email"
	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/internal/domain/practice"
	"github.com/gradmate/gradmate/internal/domain/profile"
	"github.com/gradmate/gradmate/internal/domain/resume"
	"github.com/gradmate/gradmate/pkg/supabase"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if !h.Debug {
			msg = "internal server error"
		}
	}

	h.respond(w, status, errorResponse{Code: code, Message: msg})
}

// badRequest is for malformed bodies and parameters, before any domain
// logic runs.
func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.respond(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: msg})
}

func classify(err error) (status int, code string) {
	var sbErr *supabase.Error
	if errors.As(err, &sbErr) {
		status := sbErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return status, "auth_error"
	}

	switch {
	case errors.Is(err, profile.ErrNotFound),
		errors.Is(err, lab.ErrNotFound),
		errors.Is(err, lab.ErrSchoolNotFound),
		errors.Is(err, resume.ErrNotFound),
		errors.Is(err, practice.ErrNotFound),
		errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, email.ErrMissingLabTitle),
		errors.Is(err, practice.ErrUnknownExam),
		errors.Is(err, practice.ErrNoSections),
		errors.Is(err, practice.ErrEmptySection),
		errors.Is(err, application.ErrInvalidStatus),
		errors.Is(err, resume.ErrUnsupportedType):
		return http.StatusUnprocessableEntity, "validation_failed"

	case errors.Is(err, discovery.ErrNoLabs):
		return http.StatusNotFound, "no_labs_found"
	}

	return http.StatusInternalServerError, "internal"
}

// decodeJSON fills v from the request body. An empty body leaves v zeroed.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
