package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/domain/resume"
	"github.com/gradmate/gradmate/internal/queue"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
)

const maxResumeBytes = 10 << 20 // 10 MB

// uploadResume accepts a multipart "file" field, stores the object, records
// the row as pending, and enqueues the parsing job.
func (h *Handler) uploadResume(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxResumeBytes+(1<<20))
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		h.badRequest(w, "invalid multipart body or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.badRequest(w, "missing 'file' field")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxResumeBytes {
		h.badRequest(w, "file exceeds the 10 MB limit")
		return
	}

	mimeType := resolveMIME(header.Filename, header.Header.Get("Content-Type"))
	if !resume.SupportedMIME(mimeType) {
		h.respondError(w, r, resume.ErrUnsupportedType)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	rec := &resume.Resume{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		FileName:  header.Filename,
		MIMEType:  mimeType,
		SizeBytes: int64(len(data)),
		Status:    resume.StatusPending,
	}
	rec.ObjectKey = user.ID + "/" + rec.ID

	if err := h.Supabase.Storage().Upload(r.Context(), h.Bucket, rec.ObjectKey, data, mimeType); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Resumes.Create(r.Context(), rec); err != nil {
		h.respondError(w, r, err)
		return
	}

	err = h.Queue.PublishResumeJob(r.Context(), queue.ResumeJob{
		ResumeID:  rec.ID,
		UserID:    rec.UserID,
		ObjectKey: rec.ObjectKey,
		MIMEType:  rec.MIMEType,
	})
	if err != nil {
		// The row stays pending; surface the failure so the client retries.
		zctx.From(r.Context()).Error("publish resume job", zap.String("resume_id", rec.ID), zap.Error(err))
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusAccepted, rec)
}

func (h *Handler) listResumes(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	list, err := h.Resumes.List(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, list)
}

func (h *Handler) getResume(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())

	rec, err := h.Resumes.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, rec)
}

// deleteResume removes the row and then the stored object. A dangling
// object after a failed storage delete is logged and left for cleanup.
func (h *Handler) deleteResume(w http.ResponseWriter, r *http.Request) {
	user := httpmiddleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	rec, err := h.Resumes.Get(r.Context(), user.ID, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Resumes.Delete(r.Context(), user.ID, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Supabase.Storage().Delete(r.Context(), h.Bucket, rec.ObjectKey); err != nil {
		zctx.From(r.Context()).Warn("delete resume object",
			zap.String("object_key", rec.ObjectKey), zap.Error(err))
	}

	h.respond(w, http.StatusNoContent, nil)
}

// resolveMIME prefers the client-sent content type, falling back to the
// file extension. Browsers are unreliable about docx in particular.
func resolveMIME(filename, contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	}
	return contentType
}
