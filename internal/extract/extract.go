package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// topicHrefPatterns are the known href shapes that identify a topic page.
// The forum has accumulated several URL schemes over the years; all of them
// embed a numeric topic id.
var topicHrefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`thread-\d+-\d+-\d+\.html`),
	regexp.MustCompile(`thread-\d+\.html`),
	regexp.MustCompile(`thread\.php\?tid=\d+`),
	regexp.MustCompile(`forum\.php\?mod=viewthread&(?:amp;)?tid=\d+`),
}

// Topic id capture, tried in order: query-string form first, then path form.
var (
	tidParamPattern = regexp.MustCompile(`tid=(\d+)`)
	threadIDPattern = regexp.MustCompile(`thread-(\d+)`)
)

// topicURLFormat is the canonical "page 1" URL for a topic id.
const topicURLFormat = "https://sehuatang.org/thread-%s-1-1.html"

// magnetPattern matches magnet URIs embedded in post text. The hash part is
// at least 32 characters, which covers both hex-encoded and base32-encoded
// info hashes.
var magnetPattern = regexp.MustCompile(`(?i)magnet:\?xt=urn:[a-z0-9]+:[a-z0-9]{32,}`)

// contentSelectors are the post-body containers magnet links appear in.
const contentSelectors = "div.blockcode, div.t_msgfont, div.postcontent, div.message, p"

// TopicLinks extracts canonical topic-page URLs from a board index page.
//
// Every anchor matching a known topic href shape is reduced to its numeric
// topic id and normalized to the canonical first-page URL. Duplicate ids are
// dropped, first anchor wins, and the result preserves document order so the
// orchestrator's topic sequence is deterministic. An empty result is not an
// error: the caller treats it as "page has no topics".
func TopicLinks(markup string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index markup: %w", err)
	}

	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || !matchesTopicShape(href) {
			return
		}

		id := topicID(href)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		links = append(links, fmt.Sprintf(topicURLFormat, id))
	})

	return links, nil
}

// matchesTopicShape reports whether the href matches any known topic URL
// shape.
func matchesTopicShape(href string) bool {
	for _, p := range topicHrefPatterns {
		if p.MatchString(href) {
			return true
		}
	}
	return false
}

// topicID extracts the numeric topic id from a matched href.
func topicID(href string) string {
	if m := tidParamPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := threadIDPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// MagnetLinks extracts magnet URIs from a topic page.
//
// Two sources are unioned: magnet URIs matched inside the text of the known
// post-body containers, and anchors whose href is itself a magnet URI (taken
// verbatim). The result may contain duplicates; deduplication happens at
// aggregation in the orchestrator, not here.
func MagnetLinks(markup string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse topic markup: %w", err)
	}

	links := make([]string, 0)

	doc.Find(contentSelectors).Each(func(_ int, sel *goquery.Selection) {
		links = append(links, magnetPattern.FindAllString(sel.Text(), -1)...)
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.HasPrefix(href, "magnet:") {
			links = append(links, href)
		}
	})

	return links, nil
}
