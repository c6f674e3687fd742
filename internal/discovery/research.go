package discovery

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/llm"
)

var (
	researchWordsRe = regexp.MustCompile(`(?i)research|labs?|groups?`)
	urlRe           = regexp.MustCompile(`https?://[\w./\-_%]+`)
)

const (
	linkMaxDepth = 3
	linkTopN     = 5
)

// findResearchURL resolves the department research/labs page: Gemini
// suggestion first, then research-path probes off the department page,
// then scored internal links, else the department page itself.
func (s *Service) findResearchURL(ctx context.Context, college, major string) (string, error) {
	lg := zctx.From(ctx)

	root, err := s.rootDomain(ctx, college)
	if err != nil {
		return "", err
	}
	lg.Info("Resolved domain", zap.String("root", root))

	if suggested := s.suggestResearchURL(ctx, college, major, root); suggested != "" {
		if final, err := s.fetcher.Probe(ctx, suggested); err == nil {
			lg.Info("Using suggested research URL", zap.String("url", final))
			return final, nil
		}
		lg.Warn("Suggested URL unreachable, falling back", zap.String("url", suggested))
	}

	deptURL := ""
	for _, pattern := range departmentPatterns(root) {
		if final, err := s.fetcher.Probe(ctx, pattern); err == nil {
			deptURL = final
			break
		}
	}
	if deptURL == "" {
		deptURL, err = s.departmentURL(ctx, root, major)
		if err != nil {
			return "", err
		}
	}

	deptDoc, err := s.fetcher.Get(ctx, deptURL)
	if err != nil {
		return "", errors.Wrap(err, "fetch department page")
	}

	for _, suffix := range []string{"/research", "/research/", "/labs", "/labs/", "/groups", "/groups/", "/groups-labs", "/groups-labs/"} {
		candidate := strings.TrimSuffix(deptURL, "/") + suffix
		if s.isResearchPage(ctx, candidate) {
			return candidate, nil
		}
	}

	for _, candidate := range ScoreLinks(deptDoc, deptURL, linkTopN) {
		if s.isResearchPage(ctx, candidate) {
			lg.Info("Found research URL via link scoring", zap.String("url", candidate))
			return candidate, nil
		}
	}

	lg.Info("No research page found, using department URL", zap.String("url", deptURL))
	return deptURL, nil
}

// isResearchPage checks whether any heading on the page reads like a
// research listing.
func (s *Service) isResearchPage(ctx context.Context, pageURL string) bool {
	doc, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return false
	}
	found := false
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.ToLower(h.Text())
		if strings.Contains(text, "research") || strings.Contains(text, "lab") || strings.Contains(text, "group") {
			found = true
			return false
		}
		return true
	})
	return found
}

// ScoreLinks ranks same-host links on the page by how research-like they
// are: +2 for research words in the path, +1 in the anchor text. Paths
// deeper than linkMaxDepth are navigation rabbit holes and are skipped.
func ScoreLinks(doc *goquery.Document, baseURL string, topN int) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	scores := make(map[string]int)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref)
		if full.Host != base.Host {
			return
		}
		depth := 0
		for _, seg := range strings.Split(full.Path, "/") {
			if seg != "" {
				depth++
			}
		}
		if depth > linkMaxDepth {
			return
		}
		score := 0
		if researchWordsRe.MatchString(full.Path) {
			score += 2
		}
		if researchWordsRe.MatchString(a.Text()) {
			score++
		}
		scores[full.String()] += score
	})

	type scored struct {
		url   string
		score int
	}
	ranked := make([]scored, 0, len(scores))
	for u, sc := range scores {
		ranked = append(ranked, scored{u, sc})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].url < ranked[j].url
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.url
	}
	return out
}

// suggestResearchURL asks the suggester model for the canonical research
// page. Answers are cached, including misses, to keep repeated
// discoveries for the same department fast.
func (s *Service) suggestResearchURL(ctx context.Context, college, major, root string) string {
	if s.suggester == nil {
		return ""
	}
	lg := zctx.From(ctx)

	if cached, ok := s.cache.get(college, major); ok {
		return cached
	}

	out, err := s.suggester.Complete(ctx, llm.Request{
		Prompt: "You are a highly precise web knowledge assistant. " +
			"Task: provide the SINGLE canonical HTTPS URL that lists research labs, research groups, or active research areas " +
			"for the specified department. This is usually a page titled 'Research', 'Research Areas', 'Groups & Labs', or similar.\n" +
			"Guidelines:\n" +
			"1. Return ONLY the URL, nothing else.\n" +
			"2. Prefer pages hosted on the department or school sub-domain (e.g. scs.gatech.edu) over legacy or external mirrors.\n" +
			"3. Do NOT return menu, navigation, PDF, or announcement pages.\n" +
			"4. If no suitable page exists or you are not confident, answer with 'unknown'.\n\n" +
			"College/University: " + college + "\nMajor/Department: " + major + "\nURL:",
		Temperature: 0.2,
		MaxTokens:   64,
	})
	if err != nil {
		lg.Warn("Research URL suggestion failed", zap.Error(err))
		s.cache.put(college, major, "")
		return ""
	}

	suggested := urlRe.FindString(out)
	if suggested == "" || (root != "" && !strings.Contains(suggested, root)) || !researchWordsRe.MatchString(strings.ToLower(suggested)) {
		s.cache.put(college, major, "")
		return ""
	}

	lg.Info("Suggested research URL", zap.String("url", suggested))
	s.cache.put(college, major, suggested)
	return suggested
}
