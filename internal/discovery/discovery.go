// Package discovery locates a university department's research page and
// extracts its labs, faculty, and contact details.
package discovery

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/internal/scrape"
)

var ErrNoLabs = errors.New("unable to extract research areas from discovered page")

const DefaultMajor = "Computer Science"

type Faculty struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

type Lab struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"lab_url"`
	Faculty     []Faculty `json:"faculty"`
}

type Result struct {
	ResearchURL string `json:"research_url"`
	Labs        []Lab  `json:"labs"`
}

// Service wires the crawler with the two LLM roles it leans on: suggester
// proposes research URLs and reads lab pages, resolver answers the
// domain-of-record question. Either may be nil, which disables that path.
type Service struct {
	fetcher   *scrape.Fetcher
	suggester llm.Client
	resolver  llm.Client
	cache     *suggestionCache
}

func NewService(fetcher *scrape.Fetcher, suggester, resolver llm.Client) (*Service, error) {
	cache, err := newSuggestionCache()
	if err != nil {
		return nil, errors.Wrap(err, "create suggestion cache")
	}
	return &Service{
		fetcher:   fetcher,
		suggester: suggester,
		resolver:  resolver,
		cache:     cache,
	}, nil
}

// Discover runs the full pipeline for one college and major.
func (s *Service) Discover(ctx context.Context, college, major string) (*Result, error) {
	if strings.TrimSpace(college) == "" {
		return nil, errors.New("missing required field 'college'")
	}
	if major == "" {
		major = DefaultMajor
	}
	lg := zctx.From(ctx)
	lg.Info("Discovering labs", zap.String("college", college), zap.String("major", major))

	researchURL, err := s.findResearchURL(ctx, college, major)
	if err != nil {
		return nil, errors.Wrapf(err, "find research page for %s", college)
	}
	lg.Info("Research page resolved", zap.String("url", researchURL))

	doc, err := s.fetcher.Get(ctx, researchURL)
	if err != nil {
		return nil, errors.Wrap(err, "fetch research page")
	}

	labs := ExtractLabAreas(doc, researchURL)
	for i := range labs {
		s.enrichLab(ctx, &labs[i], college, researchURL)
	}
	lg.Info("Extracted lab areas", zap.Int("count", len(labs)), zap.String("url", researchURL))

	if len(labs) == 0 {
		return nil, ErrNoLabs
	}
	return &Result{ResearchURL: researchURL, Labs: labs}, nil
}

// enrichLab fills the gaps extraction left: a guaranteed lab URL, a
// faculty roster from the personnel section or the LLM, and guessed
// emails for faculty without one.
func (s *Service) enrichLab(ctx context.Context, l *Lab, college, researchURL string) {
	if l.URL == "" {
		l.URL = researchURL
	}

	if len(l.Faculty) == 0 {
		people := scrapePersonnel(ctx, s.fetcher, l.URL)
		if len(people) == 0 {
			people = s.extractFacultyLLM(ctx, l.URL, college)
		}
		l.Faculty = people
	}

	host := hostOf(l.URL)
	for i := range l.Faculty {
		if l.Faculty[i].Role == "" {
			l.Faculty[i].Role = "Professor"
		}
		if l.Faculty[i].Email == "" {
			l.Faculty[i].Email = GuessEmail(l.Faculty[i].Name, host)
		}
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// GuessEmail builds a first-initial+lastname address on the lab's host,
// the most common faculty address shape.
func GuessEmail(name, host string) string {
	if host == "" {
		return ""
	}
	parts := strings.Fields(strings.ToLower(name))
	if len(parts) < 2 {
		return ""
	}
	first, last := parts[0], parts[len(parts)-1]
	return string(first[0]) + last + "@" + host
}
