// Package htmltext converts listing-page markup into plain text while
// preserving the structural hints the downstream scanner relies on.
//
// The conversion keeps three things that a naive tag-strip would lose:
//
//   - Anchor destinations: <a href="u">Label</a> becomes "Label (u)", so link
//     targets survive as parseable trailing text.
//   - Heading boundaries: <h1>..<h6> become a line prefixed with "### ". The
//     scanner uses this marker (and nothing else) to detect where a new event
//     starts.
//   - Block boundaries: <br>, </p>, </div> and </li> become newlines, <li>
//     becomes a leading bullet.
//
// Normalize never fails. Malformed or unexpected markup simply yields text
// with fewer recognizable markers, which downstream stages treat as a
// data-quality outcome, not an error.
package htmltext

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HeadingMarker prefixes every heading line in normalized output.
const HeadingMarker = "###"

// BulletMarker prefixes list items in normalized output.
const BulletMarker = "• "

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	spaceRuns    = regexp.MustCompile(`[ \t\x{00a0}]+`)
	urlPattern   = regexp.MustCompile(`(?i)https?://[^\s)"']+`)
)

// Normalize converts raw markup into whitespace-normalized plain text with
// heading and bullet markers. It never returns an error; input that fails to
// parse as HTML is handled by the parser's error-recovery and still yields
// text.
func Normalize(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		// goquery only fails on reader errors, which a strings.Reader
		// cannot produce; keep the fallback anyway.
		return strings.TrimSpace(markup)
	}

	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		renderNode(&b, node)
	}

	return tidy(b.String())
}

// Lines splits normalized text into trimmed, non-empty lines, the input
// shape the scanner expects.
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// FirstURL returns the first http(s) URL occurring in s.
func FirstURL(s string) (string, bool) {
	m := urlPattern.FindString(s)
	return m, m != ""
}

// FirstURLNear scans a window of the raw markup around idx for a URL. The
// window reaches a little before idx (anchors often precede the matched text)
// and further after it. Used to recover an info URL when none survived in the
// event block itself.
func FirstURLNear(markup string, idx int) (string, bool) {
	lo := idx - 300
	if lo < 0 {
		lo = 0
	}
	hi := idx + 1200
	if hi > len(markup) {
		hi = len(markup)
	}
	return FirstURL(markup[lo:hi])
}

// renderNode walks the node tree appending text plus structural markers.
func renderNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "head":
			return
		case "a":
			renderAnchor(b, n)
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n" + HeadingMarker + " ")
			renderChildren(b, n)
			b.WriteString("\n")
			return
		case "br":
			b.WriteString("\n")
			return
		case "li":
			b.WriteString(BulletMarker)
			renderChildren(b, n)
			b.WriteString("\n")
			return
		case "p", "div":
			renderChildren(b, n)
			b.WriteString("\n")
			return
		}
	}
	renderChildren(b, n)
}

func renderChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, c)
	}
}

// renderAnchor writes "Label (url)" so the link destination survives
// tag stripping. Anchors without an href render as their label only.
func renderAnchor(b *strings.Builder, n *html.Node) {
	var inner strings.Builder
	renderChildren(&inner, n)
	label := strings.Join(strings.Fields(inner.String()), " ")

	href := ""
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}

	b.WriteString(label)
	if href != "" {
		b.WriteString(" (" + href + ")")
	}
}

// tidy normalizes whitespace: CR removal, space-run collapsing per line,
// at most one blank line between blocks, trimmed ends.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = spaceRuns.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
