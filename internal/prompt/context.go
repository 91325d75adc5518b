// Package prompt assembles retrieved documents into LLM-ready text.
package prompt

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/okp/internal/domain/document"
)

const separator = "\n\n"

// BuildContext renders docs as numbered, cited entries joined by a blank line.
//
// With maxChars > 0 entries are kept greedily while the running total of
// (entry length + 2) stays within budget; the first entry is always kept, so
// the output may exceed a budget smaller than one entry. Lengths count runes.
func BuildContext(docs []document.Document, maxChars int) string {
	entries := make([]string, 0, len(docs))
	for i := range docs {
		entries = append(entries, formatEntry(i+1, &docs[i]))
	}

	if maxChars <= 0 {
		return strings.Join(entries, separator)
	}

	kept := make([]string, 0, len(entries))
	used := 0
	for _, e := range entries {
		cost := utf8.RuneCountInString(e) + utf8.RuneCountInString(separator)
		if used+cost > maxChars && len(kept) > 0 {
			break
		}
		kept = append(kept, e)
		used += cost
	}
	return strings.Join(kept, separator)
}

func formatEntry(n int, d *document.Document) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strconv.Itoa(n))
	b.WriteString("] ")
	b.WriteString(d.Title())

	meta := make([]string, 0, 3)
	if d.DocumentKind() != "" {
		meta = append(meta, d.DocumentKind())
	}
	if d.Product() != "" {
		meta = append(meta, d.Product())
	}
	if d.Version() != "" {
		meta = append(meta, "v"+d.Version())
	}
	if len(meta) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(meta, ", "))
		b.WriteString(")")
	}
	if d.Severity() != "" {
		b.WriteString(" [")
		b.WriteString(d.Severity())
		b.WriteString("]")
	}

	b.WriteString("\n")
	b.WriteString(body(d))

	if d.URLSlug() != "" {
		b.WriteString("\nSource: /")
		b.WriteString(d.URLSlug())
	}
	return b.String()
}

// body prefers the synopsis. Advisories show both when they differ.
func body(d *document.Document) string {
	synopsis, snippet := d.Synopsis(), d.Snippet()
	if d.AdvisoryType() != "" && synopsis != "" && snippet != "" && synopsis != snippet {
		return synopsis + "\n" + snippet
	}
	if synopsis != "" {
		return synopsis
	}
	return snippet
}
