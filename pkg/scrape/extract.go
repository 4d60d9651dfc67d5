// Package scrape implements the paginated scrape-and-extract engine for a
// user's starred repositories.
//
// The package has two halves. The extractor half (this file) is pure: it
// takes page HTML and produces structured records using fixed selectors and
// text patterns against GitHub's current markup. The paginator half drives a
// Session page by page and decides when to stop. Keeping the matching logic
// behind ExtractRepoItems/ExtractListMembership isolates the inherently
// brittle platform patterns from pagination and session handling.
package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Record is one scraped repository's metadata. Field values default to the
// zero value when the corresponding fragment pattern is absent; only the
// owner/name anchor is mandatory.
type Record struct {
	FullName        string `json:"full_name"`
	URL             string `json:"url"`
	Description     string `json:"description"`
	Stars           int    `json:"stars"`
	Language        string `json:"language"`
	StarredAt       string `json:"starred_at"`
	StarredDatetime string `json:"starred_datetime"`
	Page            int    `json:"page"`
}

var (
	// repoPathPattern matches a host-relative "/owner/repo" anchor href.
	repoPathPattern = regexp.MustCompile(`^/([^/]+/[^/]+)$`)

	// starCountPattern matches a digit group with optional thousands
	// separators, e.g. "1,234".
	starCountPattern = regexp.MustCompile(`\d+(?:,\d+)*`)

	// listIDPattern guards list ids, which are numeric on the platform.
	listIDPattern = regexp.MustCompile(`^[0-9]+$`)

	whitespaceRun  = regexp.MustCompile(`\s+`)
	nonWordOrSpace = regexp.MustCompile(`[^\w\s]`)
)

// ExtractRepoItems parses one starred-repositories listing page and returns
// the repository records found on it, in document order.
//
// The page is split into repository list items; each item is scanned
// independently. An item without an "/owner/repo" anchor is dropped
// entirely; every other missing field degrades to its zero value, so
// extraction never fails on partial markup. Unparseable HTML yields an
// empty slice.
func ExtractRepoItems(pageHTML string) []Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var records []Record
	doc.Find("li.py-4.border-bottom").Each(func(_ int, item *goquery.Selection) {
		fullName := extractFullName(item)
		if fullName == "" {
			return
		}

		rec := Record{
			FullName:    fullName,
			URL:         "https://github.com/" + fullName,
			Description: extractDescription(item),
			Stars:       extractStarCount(item),
			Language:    extractLanguage(item),
		}
		rec.StarredAt, rec.StarredDatetime = extractStarredAt(item)
		records = append(records, rec)
	})
	return records
}

// extractFullName returns the first path-like "/owner/repo" anchor in the
// item, or "" when none is present.
func extractFullName(item *goquery.Selection) string {
	var fullName string
	item.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := repoPathPattern.FindStringSubmatch(href); m != nil {
			fullName = strings.TrimSpace(m[1])
			return false
		}
		return true
	})
	return fullName
}

func extractDescription(item *goquery.Selection) string {
	text := item.Find("p.col-9.d-inline-block").First().Text()
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}

// extractStarCount reads the digit group following the star icon marker.
// Thousands separators are stripped; a missing or unparseable count is 0.
func extractStarCount(item *goquery.Selection) int {
	icon := item.Find(`svg[aria-label="star"]`).First()
	if icon.Length() == 0 {
		return 0
	}
	text := icon.Parent().Text()
	match := starCountPattern.FindString(text)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// extractLanguage reads the text following the language-color marker.
func extractLanguage(item *goquery.Selection) string {
	lang := item.Find(`span.repo-language-color + span[itemprop="programmingLanguage"]`).First()
	if lang.Length() == 0 {
		lang = item.Find(`span[itemprop="programmingLanguage"]`).First()
	}
	return strings.TrimSpace(lang.Text())
}

// extractStarredAt reads the relative-time marker: the display text
// ("2 days ago") and the machine-readable datetime attribute.
func extractStarredAt(item *goquery.Selection) (display, datetime string) {
	item.Find("relative-time").EachWithBreak(func(_ int, rt *goquery.Selection) bool {
		parentText := rt.Parent().Text()
		if !strings.Contains(parentText, "Starred") {
			return true
		}
		display = strings.TrimSpace(rt.Text())
		datetime, _ = rt.Attr("datetime")
		return false
	})
	return display, datetime
}

// ExtractListMembership parses a repository "lists" page and returns the
// mapping from star-list display name to its numeric platform id. When raw
// is false, names are normalized with NormalizeListName.
func ExtractListMembership(pageHTML string, raw bool) map[string]string {
	mapping := make(map[string]string)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return mapping
	}

	doc.Find(`input.js-user-list-menu-item`).Each(func(_ int, input *goquery.Selection) {
		id, _ := input.Attr("value")
		if !listIDPattern.MatchString(id) {
			return
		}
		name := input.Parent().Find("span.Truncate-text").First().Text()
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if !raw {
			name = NormalizeListName(name)
		}
		mapping[name] = id
	})
	return mapping
}

// NormalizeListName converts a list display name to its URL-slug form:
// literal "&amp;" is unescaped, punctuation becomes spaces, the result is
// lowercased and trimmed, whitespace runs collapse to one space, and spaces
// become hyphens. The transform is idempotent.
func NormalizeListName(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = nonWordOrSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(strings.ToLower(s))
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.ReplaceAll(s, " ", "-")
}

// HasNextPage reports whether the page advertises a link to the given next
// page number. GitHub's pagination footer carries a textual "Next" marker
// plus an explicit page=N+1 reference; both are required.
func HasNextPage(pageHTML string, next int) bool {
	return strings.Contains(pageHTML, "Next") &&
		strings.Contains(pageHTML, "page="+strconv.Itoa(next))
}
