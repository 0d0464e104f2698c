// Package normalizer turns raw HTML or plain-text input into clean text
// ready for slide structuring. All functions are pure and never touch
// the network.
package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	htmlTagRe       = regexp.MustCompile(`(?i)<\s*(html|head|body|div|p|span|h[1-6]|a|img|script|style)`)
	numberedPointRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	blankRunRe      = regexp.MustCompile(`\n\s*\n`)
)

// Tags whose subtrees carry no slide-worthy content.
var skippedTags = map[string]struct{}{
	"script": {}, "style": {}, "nav": {}, "footer": {}, "header": {}, "aside": {},
}

// IsHTML reports whether the content appears to contain HTML markup.
func IsHTML(content string) bool {
	return htmlTagRe.MatchString(content)
}

// Clean extracts readable text from HTML content. Plain-text input is
// returned with whitespace tidied up, line by line.
func Clean(content string) string {
	if !IsHTML(content) {
		return cleanLines(content)
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		// Malformed markup degrades to plain-text handling.
		return cleanLines(content)
	}

	var b strings.Builder
	collectText(root, &b)

	text := cleanLines(b.String())
	return strings.TrimSpace(blankRunRe.ReplaceAllString(text, "\n\n"))
}

// collectText walks the parse tree appending text nodes, skipping
// subtrees that never contain presentable content.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		if _, skip := skippedTags[n.Data]; skip {
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString("\n")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// cleanLines strips each line and drops empty ones.
func cleanLines(content string) string {
	lines := strings.Split(content, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return strings.Join(clean, "\n")
}

// Truncate cuts content down to maxLength characters at a word boundary,
// appending an ellipsis when anything was dropped.
func Truncate(content string, maxLength int) string {
	if len(content) <= maxLength {
		return content
	}

	truncated := content[:maxLength]
	if last := strings.LastIndex(truncated, " "); last > 0 {
		truncated = truncated[:last]
	}

	return truncated + "..."
}

// CountNumberedPoints returns the number of enumerated list items in the
// text: lines starting with a number followed by "." or ")".
func CountNumberedPoints(text string) int {
	return len(numberedPointRe.FindAllString(text, -1))
}
