// Package content holds text helpers shared by article authoring and generation.
package content

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
)

// ExcerptLength is the number of characters kept by Excerpt before the ellipsis
const ExcerptLength = 200

var (
	boldRegex   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRegex = regexp.MustCompile(`\*(.+?)\*`)
	spaceRegex  = regexp.MustCompile(`\s+`)
)

// StripHTML returns the text content of an HTML fragment with whitespace collapsed
func StripHTML(fragment string) string {
	z := xhtml.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return strings.TrimSpace(spaceRegex.ReplaceAllString(b.String(), " "))
		case xhtml.TextToken:
			b.Write(z.Text())
		case xhtml.StartTagToken, xhtml.EndTagToken, xhtml.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

// Excerpt returns the first ExcerptLength characters of the text content
// followed by "..."
func Excerpt(fragment string) string {
	text := StripHTML(fragment)
	if utf8.RuneCountInString(text) > ExcerptLength {
		text = string([]rune(text)[:ExcerptLength])
	}
	return text + "..."
}

// FormatParagraphs converts plain text into HTML paragraphs. Blank lines
// separate paragraphs, single newlines become <br>, and **bold** / *italic*
// markers are converted. Input that already contains markup is returned as is.
func FormatParagraphs(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return ""
	}
	if looksLikeHTML(text) {
		return text
	}

	var b strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = inlineMarkup(html.EscapeString(strings.TrimSpace(line)))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func inlineMarkup(s string) string {
	s = boldRegex.ReplaceAllString(s, "<strong>$1</strong>")
	return italicRegex.ReplaceAllString(s, "<em>$1</em>")
}

func looksLikeHTML(s string) bool {
	for _, tag := range []string{"<p", "<h1", "<h2", "<h3", "<ul", "<ol", "<div", "<blockquote"} {
		if strings.Contains(s, tag) {
			return true
		}
	}
	return false
}

// NormalizeHashtags strips leading '#', trims, and drops empty and
// case-insensitive duplicates while keeping first-seen order
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
