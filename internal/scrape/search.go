package scrape

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
)

// DefaultSearchURL is the DuckDuckGo HTML (no-JS) endpoint.
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

var ErrNoResults = errors.New("no search results")

// Result is one organic search hit.
type Result struct {
	Title string
	URL   string
}

// Search runs a DuckDuckGo HTML query and returns up to limit organic
// results with redirect wrappers unwrapped.
func (f *Fetcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u := f.SearchURL + "?q=" + url.QueryEscape(query)
	doc, err := f.Get(ctx, u)
	if err != nil {
		return nil, err
	}

	var results []Result
	doc.Find("a.result__a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			Title: normalize(s.Text()),
			URL:   target,
		})
		return limit <= 0 || len(results) < limit
	})

	if len(results) == 0 {
		return nil, errors.Wrapf(ErrNoResults, "query %q", query)
	}
	return results, nil
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg= redirect links to the
// destination URL. Direct links pass through unchanged.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		return uddg
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}
