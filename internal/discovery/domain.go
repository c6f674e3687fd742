package discovery

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/llm"
)

// Institute-of-Technology names defeat abbreviation guessing, so the
// common ones are pinned.
var knownDomains = map[string]string{
	"georgia institute of technology":       "gatech.edu",
	"georgia tech":                          "gatech.edu",
	"massachusetts institute of technology": "mit.edu",
	"california institute of technology":    "caltech.edu",
	"illinois institute of technology":      "iit.edu",
}

var domainFillerWords = map[string]struct{}{
	"of": {}, "the": {}, "at": {}, "for": {}, "and": {}, "in": {},
}

var nonAlphaRe = regexp.MustCompile(`[^a-zA-Z ]`)

// rootDomain resolves a college name to its canonical .edu host: known
// mapping, then web search, then abbreviation guessing, then the LLM.
func (s *Service) rootDomain(ctx context.Context, college string) (string, error) {
	lg := zctx.From(ctx)
	lg.Info("Resolving domain", zap.String("college", college))

	key := strings.ToLower(strings.TrimSpace(college))
	if dom, ok := knownDomains[key]; ok {
		if s.fetcher.Live(ctx, dom) {
			lg.Info("Using known domain mapping", zap.String("domain", dom))
			return dom, nil
		}
		lg.Info("Known domain not live, falling back to search", zap.String("domain", dom))
	}

	queries := []string{
		college + " official website",
		college + " .edu domain",
		college + " university website",
	}
	for _, q := range queries {
		hits, err := s.fetcher.Search(ctx, q, 5)
		if err != nil {
			lg.Warn("Search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		for _, hit := range hits {
			u, err := url.Parse(hit.URL)
			if err != nil {
				continue
			}
			host := u.Host
			if strings.HasSuffix(host, ".edu") && s.fetcher.Live(ctx, host) {
				lg.Info("Found domain via search", zap.String("domain", host))
				return host, nil
			}
		}
	}

	if dom := s.guessDomain(ctx, college); dom != "" {
		lg.Info("Guessed live domain", zap.String("domain", dom))
		return dom, nil
	}

	if dom := s.askDomain(ctx, college); dom != "" {
		lg.Info("LLM provided domain", zap.String("domain", dom))
		return dom, nil
	}

	return "", errors.Errorf("could not resolve root domain for %s", college)
}

// guessDomain probes .edu hosts built from the college name's initials,
// covering the UGA-style abbreviation pattern.
func (s *Service) guessDomain(ctx context.Context, college string) string {
	var tokens []string
	for _, t := range strings.Fields(nonAlphaRe.ReplaceAllString(college, " ")) {
		t = strings.ToLower(t)
		if _, skip := domainFillerWords[t]; !skip {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return ""
	}

	var abbr strings.Builder
	for _, t := range tokens {
		abbr.WriteByte(t[0])
	}
	last := tokens[len(tokens)-1]

	candidates := []string{
		abbr.String() + ".edu",
		abbr.String() + string(last[0]) + ".edu",
		abbr.String() + "a.edu",
		abbr.String() + "u.edu",
		last + ".edu",
	}
	if len(college) <= 5 && !strings.Contains(college, " ") {
		candidates = append([]string{strings.ToLower(college) + ".edu"}, candidates...)
	}

	for _, dom := range candidates {
		if s.fetcher.Live(ctx, dom) {
			return dom
		}
	}
	return ""
}

func (s *Service) askDomain(ctx context.Context, college string) string {
	if s.resolver == nil {
		return ""
	}
	out, err := s.resolver.Complete(ctx, llm.Request{
		Prompt: "You are a knowledge base of US universities. " +
			"Given the college name delimited by triple backticks, return only its primary .edu domain. " +
			"Respond with just the domain, nothing else.\n\nCollege: ```" + college + "```",
		MaxTokens: 10,
	})
	if err != nil {
		zctx.From(ctx).Warn("LLM domain resolution failed", zap.Error(err))
		return ""
	}
	dom := strings.ToLower(strings.TrimSpace(out))
	if strings.HasSuffix(dom, ".edu") && s.fetcher.Live(ctx, dom) {
		return dom
	}
	return ""
}

// departmentPatterns lists the URL shapes CS departments typically live
// at, most specific subdomains first.
func departmentPatterns(root string) []string {
	return []string{
		"https://www.cs." + root,
		"https://cs." + root,
		"https://www." + root + "/cs",
		"https://" + root + "/cs",
		"https://scs." + root,
		"https://www.scs." + root,
		"https://www." + root + "/computer-science",
		"https://" + root + "/computer-science",
	}
}

// departmentURL finds the department homepage via pattern probing, then
// search hits whose path mentions the field.
func (s *Service) departmentURL(ctx context.Context, root, major string) (string, error) {
	lg := zctx.From(ctx)

	for _, pattern := range departmentPatterns(root) {
		if final, err := s.fetcher.Probe(ctx, pattern); err == nil {
			lg.Info("Found department URL", zap.String("url", final))
			return final, nil
		}
	}

	queries := []string{
		`"` + major + `" department ` + root,
		`"` + major + `" school ` + root,
		"computer science " + root,
		"cs department " + root,
	}
	for _, q := range queries {
		hits, err := s.fetcher.Search(ctx, q, 5)
		if err != nil {
			continue
		}
		for _, hit := range hits {
			if !strings.Contains(hit.URL, root) {
				continue
			}
			u, err := url.Parse(hit.URL)
			if err != nil {
				continue
			}
			path := strings.ToLower(u.Path)
			if strings.Contains(path, "cs") || strings.Contains(path, "computer") || strings.Contains(path, "computing") {
				lg.Info("Found department via search", zap.String("url", hit.URL))
				return hit.URL, nil
			}
		}
	}

	return "", errors.Errorf("department page not found for %s %s", root, major)
}
