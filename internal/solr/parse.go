package solr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/document"
	"github.com/kailas-cloud/okp/internal/domain/facet"
	"github.com/kailas-cloud/okp/internal/domain/result"
	"github.com/kailas-cloud/okp/internal/normalize"
)

const (
	maxSnippetFragment = 500
	maxHighlightFrags  = 2
)

// ParseResponse converts a decoded Solr JSON tree into a Page.
// Decode with json.Decoder.UseNumber so integers stay exact.
// Only a missing or non-object "response" is an error; every other
// irregularity degrades to a default.
func ParseResponse(tree any, logger *zap.Logger) (result.Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root, _ := tree.(map[string]any)

	resp, ok := root["response"].(map[string]any)
	if !ok {
		return result.Page{}, domain.NewResponseError(
			fmt.Sprintf("Expected 'response' object in Solr JSON, got %s", typeName(root["response"])),
			rawJSON(tree), nil,
		)
	}

	numFound, ok := asInt(resp["numFound"])
	if !ok {
		numFound = 0
	}

	rawDocs, _ := resp["docs"].([]any)
	highlighting, _ := root["highlighting"].(map[string]any)

	docs := make([]document.Document, 0, len(rawDocs))
	for _, raw := range rawDocs {
		d, ok := raw.(map[string]any)
		if !ok {
			logger.Warn("Skipping non-object document in Solr response", zap.String("type", typeName(raw)))
			continue
		}
		docs = append(docs, parseDocument(d, highlighting))
	}

	return result.Page{
		Docs:     docs,
		NumFound: numFound,
		Facets:   parseFacets(root),
	}, nil
}

func parseDocument(d, highlighting map[string]any) document.Document {
	resource := text(d["resourceName"])
	docID := text(d["id"])
	if docID == "" {
		docID = resource
	}
	hl, _ := highlighting[docID].(map[string]any)

	severity := text(d["portal_severity"])
	if severity == "" {
		severity = text(d["cve_threatSeverity"])
	}

	return document.New(document.Fields{
		Title:        clean(d["title"]),
		Snippet:      normalize.StripHighlight(snippet(d, hl)),
		URLSlug:      text(d["url_slug"]),
		ResourceName: resource,
		DocumentKind: clean(d["documentKind"]),
		Product:      clean(d["product"]),
		Version:      clean(d["documentation_version"]),
		Score:        asFloat(d["score"]),
		LastModified: text(d["lastModifiedDate"]),
		ViewURI:      text(d["view_uri"]),
		Summary:      clean(d["portal_summary"]),
		Headings:     headings(d["heading_h2"]),
		Severity:     normalize.StripHighlight(severity),
		AdvisoryType: clean(d["portal_advisory_type"]),
		Synopsis:     clean(d["portal_synopsis"]),
	})
}

// snippet picks the first two main_content highlights, else the title
// highlights, else the raw main_content, each fragment capped at 500 characters.
func snippet(d, hl map[string]any) string {
	candidates := stringList(hl["main_content"])
	if len(candidates) > maxHighlightFrags {
		candidates = candidates[:maxHighlightFrags]
	}
	if len(candidates) == 0 {
		candidates = stringList(hl["title"])
	}
	if len(candidates) == 0 {
		candidates = []string{text(d["main_content"])}
	}

	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = truncateRunes(c, maxSnippetFragment)
	}
	return strings.Join(parts, " ")
}

func parseFacets(root map[string]any) facet.Counts {
	counts, _ := root["facet_counts"].(map[string]any)
	fields, _ := counts["facet_fields"].(map[string]any)
	return facet.New(
		pairs(fields["product"]),
		pairs(fields["documentKind"]),
		pairs(fields["documentation_version"]),
		pairs(fields["portal_content_subtype"]),
	)
}

// pairs reads Solr's flat [value, count, value, count, ...] facet layout.
// Malformed pairs and non-positive counts are skipped.
func pairs(raw any) map[string]int {
	list, _ := raw.([]any)
	out := make(map[string]int, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		name, ok := list[i].(string)
		if !ok {
			continue
		}
		n, ok := asInt(list[i+1])
		if !ok || n <= 0 {
			continue
		}
		out[name] = n
	}
	return out
}

func headings(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, h := range list {
		if s, ok := h.(string); ok {
			out = append(out, normalize.StripHighlight(s))
		}
	}
	return out
}

func clean(v any) string {
	return normalize.StripHighlight(text(v))
}

// text renders a scalar field. Multi-valued fields yield their first string.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		for _, e := range x {
			if s, ok := e.(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := strconv.ParseInt(x.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	default:
		return 0, false
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func rawJSON(tree any) string {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Sprintf("%v", tree)
	}
	return string(data)
}
