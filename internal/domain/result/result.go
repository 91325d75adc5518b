package result

import (
	"encoding/json"

	"github.com/kailas-cloud/okp/internal/domain/document"
	"github.com/kailas-cloud/okp/internal/domain/facet"
)

// Page is what a backend returns for one search call.
type Page struct {
	Docs     []document.Document
	NumFound int
	Facets   facet.Counts
}

// Outcome carries the result of an asynchronous backend call.
type Outcome struct {
	Page Page
	Err  error
}

// Result is the outcome of a retrieval (immutable value object).
type Result struct {
	query    string
	numFound int
	docs     []document.Document
	context  string
	facets   facet.Counts
}

// New creates a Result. The document slice is copied.
func New(query string, numFound int, docs []document.Document, context string, facets facet.Counts) Result {
	cp := make([]document.Document, len(docs))
	copy(cp, docs)
	return Result{query: query, numFound: numFound, docs: cp, context: context, facets: facets}
}

// Query returns the stripped query as supplied by the caller, before expansion or escaping.
func (r *Result) Query() string { return r.query }

// NumFound returns the total number of matches reported by the backend.
func (r *Result) NumFound() int { return r.numFound }

// Docs returns a copy of the returned documents.
func (r *Result) Docs() []document.Document {
	cp := make([]document.Document, len(r.docs))
	copy(cp, r.docs)
	return cp
}

// Context returns the assembled LLM context string.
func (r *Result) Context() string { return r.context }

// Facets returns the facet counts.
func (r *Result) Facets() facet.Counts { return r.facets }

// MarshalJSON encodes the result for CLI and HTTP output.
func (r Result) MarshalJSON() ([]byte, error) {
	docs := r.docs
	if docs == nil {
		docs = []document.Document{}
	}
	return json.Marshal(struct {
		Query    string              `json:"query"`
		NumFound int                 `json:"num_found"`
		Docs     []document.Document `json:"docs"`
		Context  string              `json:"context"`
		Facets   facet.Counts        `json:"facets"`
	}{r.query, r.numFound, docs, r.context, r.facets})
}
