// Package normalize cleans backend text and prepares user queries for the Solr parser.
package normalize

import (
	"html"
	"regexp"
	"strings"
)

var highlightTag = regexp.MustCompile(`</?b>`)

// StripHighlight removes <b>/</b> highlight tags, then decodes HTML entities.
func StripHighlight(text string) string {
	return html.UnescapeString(highlightTag.ReplaceAllString(text, ""))
}

// SanitizeQuery backslash-escapes every Solr query-parser operator so it is
// matched literally: + - & | ! ( ) { } [ ] ^ " ~ * ? : \ /
func SanitizeQuery(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range query {
		if isSpecial(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSpecial(r rune) bool {
	switch r {
	case '+', '-', '&', '|', '!', '(', ')', '{', '}', '[', ']', '^', '"', '~', '*', '?', ':', '\\', '/':
		return true
	}
	return false
}
