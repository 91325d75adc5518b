// Package mock provides an in-memory search backend for tests and offline use.
package mock

import (
	"context"
	"sync"

	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/document"
	"github.com/kailas-cloud/okp/internal/domain/facet"
	"github.com/kailas-cloud/okp/internal/domain/result"
)

// Call records one query received by the backend.
type Call struct {
	Query   string
	Rows    int
	Filters domain.Filters
	Async   bool
}

// Backend returns canned documents truncated to the requested rows.
type Backend struct {
	docs     []document.Document
	numFound int
	facets   facet.Counts

	mu     sync.Mutex
	calls  []Call
	errs   []error
	closed bool
}

// New creates a Backend. numFound < 0 means len(docs).
func New(docs []document.Document, numFound int, facets facet.Counts) *Backend {
	if numFound < 0 {
		numFound = len(docs)
	}
	cp := make([]document.Document, len(docs))
	copy(cp, docs)
	return &Backend{docs: cp, numFound: numFound, facets: facets}
}

// FailWith queues errors returned by the next calls, one per call, before
// canned results resume. A nil entry lets that call succeed.
func (b *Backend) FailWith(errs ...error) {
	b.mu.Lock()
	b.errs = append(b.errs, errs...)
	b.mu.Unlock()
}

// Search returns the canned page or the next queued error.
func (b *Backend) Search(_ context.Context, query string, rows int, f domain.Filters) (result.Page, error) {
	return b.serve(Call{Query: query, Rows: rows, Filters: f})
}

// SearchAsync delivers the same outcome as Search on a channel.
func (b *Backend) SearchAsync(_ context.Context, query string, rows int, f domain.Filters) <-chan result.Outcome {
	ch := make(chan result.Outcome, 1)
	page, err := b.serve(Call{Query: query, Rows: rows, Filters: f, Async: true})
	ch <- result.Outcome{Page: page, Err: err}
	close(ch)
	return ch
}

// Queries returns every query string received, in order.
func (b *Backend) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.Query
	}
	return out
}

// Calls returns a copy of every recorded call.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Close marks the backend closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) serve(c Call) (result.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, c)
	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		if err != nil {
			return result.Page{}, err
		}
	}

	n := c.Rows
	if n > len(b.docs) {
		n = len(b.docs)
	}
	if n < 0 {
		n = 0
	}
	docs := make([]document.Document, n)
	copy(docs, b.docs[:n])
	return result.Page{Docs: docs, NumFound: b.numFound, Facets: b.facets}, nil
}
