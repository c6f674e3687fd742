package discovery

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/gradmate/gradmate/internal/scrape"
)

// Follow at most this many profile pages when hunting for emails.
const maxProfileFollows = 5

var personnelWords = []string{"personnel", "people", "members", "faculty"}

// scrapePersonnel parses the lab page's own people section into a faculty
// roster. Profile links are followed for members whose email is not on
// the listing itself.
func scrapePersonnel(ctx context.Context, fetcher *scrape.Fetcher, labURL string) []Faculty {
	doc, err := fetcher.Get(ctx, labURL)
	if err != nil {
		return nil
	}

	var start *html.Node
	for _, root := range doc.Nodes {
		for n := root; n != nil; n = nextNode(n) {
			if isHeading(n) && containsAny(strings.ToLower(nodeText(n)), personnelWords) {
				start = n
				break
			}
		}
		if start != nil {
			break
		}
	}
	if start == nil {
		return nil
	}

	var names []string
	emails := make(map[string]string)
	roles := make(map[string]string)
	profiles := make(map[string]string)

	for n := nextNode(start); n != nil; n = nextNode(n) {
		if isHeading(n) {
			break
		}
		if n.Type != html.ElementNode {
			continue
		}

		switch n.Data {
		case "a":
			text := normalizeText(nodeText(n))
			href := attr(n, "href")
			name := text
			if m := profNameRe.FindStringSubmatch(text); m != nil {
				name = m[1]
			}
			if name == "" {
				continue
			}
			appendUnique(&names, name)
			if strings.HasPrefix(href, "mailto:") {
				emails[name] = strings.TrimSpace(strings.TrimPrefix(href, "mailto:"))
			} else if strings.HasPrefix(href, "/") {
				profiles[name] = resolveAgainst(labURL, href)
			}
		case "li", "p", "div", "span":
			text := normalizeText(nodeText(n))
			if text == "" {
				continue
			}
			m := profNameRe.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			name := m[1]
			appendUnique(&names, name)

			if email := emailRe.FindString(text); email != "" {
				emails[name] = email
				// Whatever text remains next to the name and email is
				// usually the person's role.
				rem := strings.Trim(strings.ReplaceAll(strings.ReplaceAll(text, name, ""), email, ""), " ,;:-()")
				if rem != "" && len(rem) < 60 {
					roles[name] = rem
				}
			} else if a := findElement(n, "a"); a != nil {
				if href := attr(a, "href"); href != "" && !strings.HasPrefix(href, "mailto:") {
					profiles[name] = resolveAgainst(labURL, href)
				}
			}
		}
	}

	followed := 0
	for _, name := range names {
		if _, have := emails[name]; have {
			continue
		}
		link, ok := profiles[name]
		if !ok || followed >= maxProfileFollows {
			continue
		}
		followed++
		if email := emailFromPage(ctx, fetcher, link); email != "" {
			emails[name] = email
		}
	}

	out := make([]Faculty, 0, len(names))
	for _, name := range names {
		out = append(out, Faculty{
			Name:  name,
			Role:  roles[name],
			Email: emails[name],
		})
	}
	return out
}

func emailFromPage(ctx context.Context, fetcher *scrape.Fetcher, pageURL string) string {
	doc, err := fetcher.Get(ctx, pageURL)
	if err != nil {
		return ""
	}
	text, err := doc.Html()
	if err != nil {
		return ""
	}
	return emailRe.FindString(text)
}

func resolveAgainst(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return resolveRaw(href, base)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
