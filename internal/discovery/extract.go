package discovery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	maxLabs            = 40
	minDescriptionLen  = 40
	maxDescriptionLen  = 400
	maxDescriptionRows = 3
	snippetLen         = 150
)

// Nav and boilerplate headings that are never lab names.
var genericHeadings = map[string]struct{}{
	"research": {}, "overview": {}, "contact": {}, "news": {},
	"groups & labs": {}, "main menu": {}, "mini menu": {},
	"support us": {}, "home": {}, "slideshow": {},
}

var (
	profNameRe    = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z]\.)?\s+[A-Z][a-z]+)\b`)
	facultyLineRe = regexp.MustCompile(`(?i)(?:Faculty|Professors?)[:\s]+(.+)`)
	emailRe       = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
)

// ExtractLabAreas parses a research listing page into labs. Each h2-h4
// heading is a candidate lab name; the description is harvested from the
// elements between it and the next heading. The parser tolerates the
// usual CMS variations in how the lab link and faculty are marked up.
func ExtractLabAreas(doc *goquery.Document, pageURL string) []Lab {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var labs []Lab
	seen := make(map[string]struct{})

	doc.Find("h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		if len(labs) >= maxLabs || len(h.Nodes) == 0 {
			return
		}

		title := normalizeText(h.Text())
		if len(title) < 4 {
			return
		}
		if _, generic := genericHeadings[strings.ToLower(title)]; generic {
			return
		}
		if _, dup := seen[title]; dup {
			return
		}

		labURL := headingLink(h, base)

		var professors []string
		emails := make(map[string]string)
		if m := facultyLineRe.FindStringSubmatch(title); m != nil {
			professors = splitNameList(m[1])
		}
		harvestRowFaculty(h, &professors, emails)

		parts, partsSeen := []string{}, make(map[string]struct{})
		total := 0
		for n := nextNode(h.Nodes[0]); n != nil && total <= maxDescriptionLen; n = nextNode(n) {
			if isHeading(n) {
				break
			}
			if n.Type != html.ElementNode {
				continue
			}
			switch n.Data {
			case "p", "div", "span", "li":
			default:
				continue
			}
			text := normalizeText(nodeText(n))
			if len(text) <= minDescriptionLen {
				continue
			}
			if _, dup := partsSeen[text]; dup {
				continue
			}
			partsSeen[text] = struct{}{}
			parts = append(parts, text)
			total += len(text)

			if labURL == "" {
				labURL = firstContentLink(n, base, &professors, emails)
			}
			if len(professors) == 0 {
				if m := facultyLineRe.FindStringSubmatch(text); m != nil {
					professors = splitNameList(m[1])
				}
			}
		}

		// No prose between headings: snippet of the trailing text.
		if len(parts) == 0 {
			if snippet := trailingSnippet(h.Nodes[0]); snippet != "" {
				parts = append(parts, snippet)
			}
		}
		if len(parts) == 0 {
			return
		}
		if len(parts) > maxDescriptionRows {
			parts = parts[:maxDescriptionRows]
		}

		seen[title] = struct{}{}
		labs = append(labs, Lab{
			Name:        title,
			Description: strings.Join(parts, "\n"),
			URL:         labURL,
			Faculty:     toFaculty(professors, emails),
		})
	})

	return labs
}

// headingLink finds the lab's own page link: an anchor wrapping the
// heading, one inside it, or the next one after it.
func headingLink(h *goquery.Selection, base *url.URL) string {
	if a := h.ParentsFiltered("a[href]").First(); a.Length() > 0 {
		return resolveHref(a, base)
	}
	if a := h.Find("a[href]").First(); a.Length() > 0 {
		return resolveHref(a, base)
	}
	for n := nextNode(h.Nodes[0]); n != nil; n = nextNode(n) {
		if isHeading(n) {
			break
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			if validHref(href) && !strings.HasPrefix(href, "mailto:") {
				return resolveRaw(href, base)
			}
		}
	}
	return ""
}

// harvestRowFaculty collects names and mailto addresses from the CMS row
// container holding the heading, the Drupal views-row pattern.
func harvestRowFaculty(h *goquery.Selection, professors *[]string, emails map[string]string) {
	row := h.ParentsFiltered("div.views-row").First()
	if row.Length() == 0 {
		return
	}
	row.Find("a").Each(func(_ int, a *goquery.Selection) {
		text := normalizeText(a.Text())
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "mailto:") {
			email := strings.TrimSpace(strings.TrimPrefix(href, "mailto:"))
			name := text
			if name == "" {
				name, _, _ = strings.Cut(email, "@")
			}
			appendUnique(professors, name)
			emails[name] = email
			return
		}
		if m := profNameRe.FindStringSubmatch(text); m != nil {
			appendUnique(professors, m[1])
		}
	})
}

// firstContentLink inspects the first anchor inside a description block:
// mailto anchors feed the faculty list, anything else becomes the lab URL.
func firstContentLink(n *html.Node, base *url.URL, professors *[]string, emails map[string]string) string {
	a := findElement(n, "a")
	if a == nil {
		return ""
	}
	href := attr(a, "href")
	if !validHref(href) {
		return ""
	}
	if strings.HasPrefix(href, "mailto:") {
		email := strings.TrimSpace(strings.TrimPrefix(href, "mailto:"))
		name := normalizeText(nodeText(a))
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		appendUnique(professors, name)
		emails[name] = email
		return ""
	}
	return resolveRaw(href, base)
}

func trailingSnippet(heading *html.Node) string {
	for n := nextNode(heading); n != nil; n = nextNode(n) {
		if isHeading(n) {
			return ""
		}
		if n.Type == html.TextNode {
			if text := normalizeText(n.Data); text != "" {
				if runes := []rune(text); len(runes) > snippetLen {
					return string(runes[:snippetLen])
				}
				return text
			}
		}
	}
	return ""
}

func toFaculty(names []string, emails map[string]string) []Faculty {
	out := make([]Faculty, 0, len(names))
	for _, n := range names {
		out = append(out, Faculty{Name: n, Email: emails[n]})
	}
	return out
}

func splitNameList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func appendUnique(list *[]string, val string) {
	if val == "" {
		return
	}
	for _, existing := range *list {
		if existing == val {
			return
		}
	}
	*list = append(*list, val)
}

// --- html.Node helpers ---

// nextNode advances in document order: first child, next sibling, or the
// nearest ancestor's next sibling.
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "h2", "h3", "h4":
		return true
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func validHref(href string) bool {
	href = strings.TrimSpace(href)
	return href != "" && !strings.HasSuffix(href, "#") && !strings.HasPrefix(strings.ToLower(href), "javascript")
}

func resolveHref(a *goquery.Selection, base *url.URL) string {
	href, _ := a.Attr("href")
	if !validHref(href) {
		return ""
	}
	return resolveRaw(href, base)
}

func resolveRaw(href string, base *url.URL) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
