// Package email drafts personalized research outreach emails. It resolves
// the target lab, refreshes its scraped description, condenses it with the
// LLM, and writes the final email in a career-advisor persona.
package email

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/internal/domain/profile"
	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/internal/scrape"
)

var ErrMissingLabTitle = errors.New("missing or invalid field: lab_title")

// Request carries everything a caller may supply. Only LabTitle is
// required; the rest narrows lookups or overrides what the pipeline would
// otherwise derive.
type Request struct {
	UserID         string   `json:"user_id,omitempty"`
	LabTitle       string   `json:"lab_title"`
	School         string   `json:"school,omitempty"`
	LabURL         string   `json:"lab_url,omitempty"`
	LabDescription string   `json:"lab_description,omitempty"`
	Professors     []string `json:"professors,omitempty"`
	StudentName    string   `json:"student_name,omitempty"`
	StudentMajor   string   `json:"student_major,omitempty"`
}

func (r *Request) Validate() error {
	if strings.TrimSpace(r.LabTitle) == "" {
		return ErrMissingLabTitle
	}
	return nil
}

// Draft is the generated email plus the intermediate lab summary, which
// the client shows alongside the draft.
type Draft struct {
	Email      string `json:"email"`
	LabSummary string `json:"lab_summary,omitempty"`
}

type Service struct {
	labs     lab.Repository
	profiles profile.Repository
	fetcher  *scrape.Fetcher
	writer   llm.Client
}

func NewService(labs lab.Repository, profiles profile.Repository, fetcher *scrape.Fetcher, writer llm.Client) *Service {
	return &Service{
		labs:     labs,
		profiles: profiles,
		fetcher:  fetcher,
		writer:   writer,
	}
}

// Generate runs the full drafting pipeline. Lookups and scraping are
// best-effort: a missing profile or an unreachable lab page degrades the
// personalization but never fails the request.
func (s *Service) Generate(ctx context.Context, req *Request) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lg := zctx.From(ctx)

	var prof *profile.Profile
	if req.UserID != "" {
		p, err := s.profiles.Get(ctx, req.UserID)
		switch {
		case err == nil:
			prof = p
		case errors.Is(err, profile.ErrNotFound):
		default:
			lg.Warn("Unable to fetch profile", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}

	labTitle := strings.TrimSpace(req.LabTitle)
	labURL, description, record := s.resolveLab(ctx, labTitle, req)

	var summary string
	if description != "" {
		out, err := s.writer.Complete(ctx, llm.Request{
			Prompt:      labSummaryPrompt(labTitle) + "\n\nLab content:\n\n" + description,
			Temperature: summaryTemperature,
			MaxTokens:   summaryMaxTokens,
		})
		if err != nil {
			lg.Warn("Lab summarization failed", zap.Error(err))
		} else {
			summary = strings.TrimSpace(out)
		}
	}

	professors := req.Professors
	if len(professors) == 0 && description != "" {
		professors = ExtractProfessors(ctx, s.writer, description)
	}
	if len(professors) == 0 {
		professors = []string{placeholderProfessor}
	}

	system := systemPrompt(promptParams{
		StudentName: firstNonEmpty(req.StudentName, prof.Name(), "Student"),
		Profile:     prof.Summary(),
		LabURL:      labURL,
		LabSummary:  summary,
		Professor:   professors[0],
	})

	email, err := s.writer.Complete(ctx, llm.Request{
		System: system,
		Prompt: "Please generate the complete outreach email to " + professors[0] + ", including the subject line.",
	})
	if err != nil {
		return nil, errors.Wrap(err, "draft email")
	}

	if record != nil {
		lg.Info("Generated outreach email",
			zap.String("lab_id", record.ID),
			zap.String("lab", record.Name))
	}
	return &Draft{Email: email, LabSummary: summary}, nil
}

// resolveLab finds the lab's URL and description, in priority order:
// stored record, caller-supplied text, caller-supplied URL, web search.
// Freshly scraped text is written back to the stored record.
func (s *Service) resolveLab(ctx context.Context, title string, req *Request) (labURL, description string, record *lab.Lab) {
	lg := zctx.From(ctx)

	record, err := lab.Resolve(ctx, s.labs, title, req.School)
	if err != nil {
		lg.Warn("Lab lookup failed", zap.String("title", title), zap.Error(err))
	}
	if record != nil {
		labURL = record.URL
		description = record.Description
	}

	if description == "" && req.LabDescription != "" {
		description = req.LabDescription
	}
	if req.LabURL != "" && description == "" {
		if text, err := s.fetcher.PageText(ctx, req.LabURL); err == nil {
			description = text
		}
		labURL = req.LabURL
	}

	foundURL := ""
	if labURL == "" {
		if hit := s.searchLabOnline(ctx, title, req.School); hit != nil {
			foundURL = hit.URL
			labURL = hit.URL
			if description == "" {
				description = hit.Text
			}
		}
	}

	if labURL == "" {
		return labURL, description, record
	}
	fresh, err := s.fetcher.PageText(ctx, labURL)
	if err != nil || fresh == "" {
		return labURL, description, record
	}
	description = fresh
	if record != nil {
		if err := s.labs.UpdateLabContent(ctx, record.ID, fresh, foundURL); err != nil {
			lg.Warn("Failed to update lab description", zap.String("lab_id", record.ID), zap.Error(err))
		}
	}
	return labURL, description, record
}

type searchHit struct {
	URL  string
	Text string
}

func (s *Service) searchLabOnline(ctx context.Context, title, school string) *searchHit {
	lg := zctx.From(ctx)
	query := strings.TrimSpace(title + " " + school + " research lab")
	lg.Info("Searching the web for lab page", zap.String("query", query))

	results, err := s.fetcher.Search(ctx, query, 1)
	if err != nil {
		lg.Warn("Online lab search failed", zap.Error(err))
		return nil
	}
	hitURL := results[0].URL
	if _, err := url.ParseRequestURI(hitURL); err != nil {
		return nil
	}
	text, err := s.fetcher.PageText(ctx, hitURL)
	if err != nil || text == "" {
		return nil
	}
	return &searchHit{URL: hitURL, Text: text}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
