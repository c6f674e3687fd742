// Package worker consumes resume jobs from the queue, pulls the raw file
// from object storage, and fills in the parsed structure with an LLM.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/domain/resume"
	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/internal/queue"
)

// Storage fetches the uploaded file bytes by object key.
type Storage interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// StatusPublisher fans out state transitions so other consumers (e.g. a
// websocket notifier) can follow along. Nil-safe at the Worker level.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, ev queue.StatusEvent) error
}

type Worker struct {
	Resumes resume.Repository
	Store   Storage
	Parser  llm.Client
	Status  StatusPublisher
}

const (
	ioAttempts    = 3
	parseAttempts = 2
	retryBase     = time.Second

	// Long resumes are truncated before prompting to stay inside the
	// model's context window.
	maxPromptChars = 24000
)

const parseSystem = "You are a resume parsing engine. Respond with a single JSON object and nothing else: no prose, no markdown fences."

// Process runs one job through download, text extraction, and LLM parsing.
// It returns an error only for transient failures where a redelivery might
// succeed; permanent failures are recorded on the row and acked.
func (w *Worker) Process(ctx context.Context, job queue.ResumeJob) error {
	ctx = zctx.With(ctx,
		zap.String("resume_id", job.ResumeID),
		zap.String("user_id", job.UserID),
	)
	lg := zctx.From(ctx)
	lg.Info("Processing resume", zap.String("object_key", job.ObjectKey))

	w.transition(ctx, job, resume.StatusProcessing, nil, "")

	var data []byte
	err := retryDo(ctx, ioAttempts, retryBase, func(ctx context.Context) error {
		var derr error
		data, derr = w.Store.Download(ctx, job.ObjectKey)
		return derr
	})
	if err != nil {
		w.transition(ctx, job, resume.StatusFailed, nil, "download failed")
		return errors.Wrap(err, "download object")
	}

	text, err := resume.ExtractText(job.MIMEType, data)
	if err != nil {
		// Corrupt or unreadable file, redelivery will not help.
		lg.Warn("Text extraction failed", zap.Error(err))
		w.transition(ctx, job, resume.StatusFailed, nil, "could not read file contents")
		return nil
	}

	parsed, err := w.parse(ctx, text)
	if err != nil {
		w.transition(ctx, job, resume.StatusFailed, nil, "parsing failed")
		return errors.Wrap(err, "parse resume")
	}

	w.transition(ctx, job, resume.StatusParsed, parsed, "")
	lg.Info("Resume parsed",
		zap.Int("skills", len(parsed.Skills)),
		zap.Int("experience", len(parsed.Experience)),
	)
	return nil
}

// parse prompts the LLM for the structured payload, retrying once when the
// reply is not valid JSON.
func (w *Worker) parse(ctx context.Context, text string) (*resume.Parsed, error) {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	req := llm.Request{
		System:      parseSystem,
		Prompt:      parsePrompt(text),
		MaxTokens:   900,
		Temperature: 0.1,
	}

	var parsed resume.Parsed
	err := retryDo(ctx, parseAttempts, retryBase, func(ctx context.Context) error {
		raw, cerr := w.Parser.Complete(ctx, req)
		if cerr != nil {
			return cerr
		}
		cleaned := llm.CleanJSON(raw)
		if uerr := json.Unmarshal([]byte(cleaned), &parsed); uerr != nil {
			return errors.Wrap(uerr, "decode llm reply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parsePrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract the following from the resume text and return a JSON object with exactly these keys:\n")
	b.WriteString(`  "skills": array of short skill strings` + "\n")
	b.WriteString(`  "education": array of strings, one per degree or school` + "\n")
	b.WriteString(`  "experience": array of strings, one per role` + "\n")
	b.WriteString(`  "projects": array of strings, one per project` + "\n")
	b.WriteString(`  "gpa": string, empty string when not stated` + "\n")
	b.WriteString("Use empty arrays for missing sections. Do not invent entries.\n\n")
	fmt.Fprintf(&b, "Resume text:\n%s\n", text)
	return b.String()
}

// transition persists the status change and fans it out. Failures here are
// logged, not returned, so a broken status exchange cannot wedge the job.
func (w *Worker) transition(ctx context.Context, job queue.ResumeJob, st resume.Status, parsed *resume.Parsed, errMsg string) {
	lg := zctx.From(ctx)
	err := retryDo(ctx, ioAttempts, retryBase, func(ctx context.Context) error {
		return w.Resumes.SetStatus(ctx, job.ResumeID, st, parsed, errMsg)
	})
	if err != nil {
		lg.Error("Set resume status", zap.String("status", string(st)), zap.Error(err))
	}
	if w.Status == nil {
		return
	}
	ev := queue.StatusEvent{
		ResumeID: job.ResumeID,
		UserID:   job.UserID,
		Status:   string(st),
		Error:    errMsg,
	}
	if err := w.Status.PublishStatus(ctx, ev); err != nil {
		lg.Warn("Publish status event", zap.Error(err))
	}
}
