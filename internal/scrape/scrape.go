// Package scrape fetches university pages and condenses them into text
// suitable for prompting.
package scrape

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; GradMateBot/1.0)"
	fetchTimeout = 15 * time.Second

	// Shorter fragments are navigation noise, not prose.
	minBlockLen = 30
	maxPageText = 8000
)

var ErrBadStatus = errors.New("unexpected status code")

type Fetcher struct {
	client *http.Client

	// SearchURL is the search endpoint, overridable in tests.
	SearchURL string
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{client: client, SearchURL: DefaultSearchURL}
}

// Get fetches a URL and parses it. The caller owns interpretation of the
// document; this just normalizes transport concerns.
func (f *Fetcher) Get(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrBadStatus, "%d from %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	return doc, nil
}

// Probe issues a HEAD request and returns the final URL after redirects
// when the target answers with a non-error status.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "probe")
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", errors.Wrapf(ErrBadStatus, "%d from %s", resp.StatusCode, rawURL)
	}
	return resp.Request.URL.String(), nil
}

// Live reports whether the host answers on https at all. Any response,
// even an error status, counts as alive.
func (f *Fetcher) Live(ctx context.Context, host string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+host, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// PageText fetches a page and extracts its readable prose.
func (f *Fetcher) PageText(ctx context.Context, url string) (string, error) {
	doc, err := f.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return ExtractText(doc), nil
}

// ExtractText pulls text blocks from the content region of a page. It
// prefers semantic containers, skips chrome, keeps blocks longer than
// minBlockLen, drops boilerplate, and dedupes repeated blocks.
func ExtractText(doc *goquery.Document) string {
	root := doc.Selection
	for _, sel := range []string{"main", "article", "#main", "#content"} {
		if s := doc.Find(sel); s.Length() > 0 {
			root = s.First()
			break
		}
	}

	seen := make(map[string]struct{})
	var blocks []string
	total := 0

	root.Find("p, li, h1, h2, h3, h4, div").Each(func(_ int, s *goquery.Selection) {
		if total >= maxPageText {
			return
		}
		if s.ParentsFiltered("nav, footer, header, script, style").Length() > 0 {
			return
		}
		// Divs with child blocks would duplicate their children's text.
		if goquery.NodeName(s) == "div" && s.ChildrenFiltered("p, div, ul, h1, h2, h3, h4").Length() > 0 {
			return
		}

		text := normalize(s.Text())
		if len(text) <= minBlockLen {
			return
		}
		if strings.Contains(strings.ToLower(text), "copyright") {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		blocks = append(blocks, text)
		total += len(text)
	})

	return strings.Join(blocks, "\n")
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
