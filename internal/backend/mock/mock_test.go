package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/document"
	"github.com/kailas-cloud/okp/internal/domain/facet"
)

func threeDocs() []document.Document {
	return []document.Document{
		document.New(document.Fields{Title: "a"}),
		document.New(document.Fields{Title: "b"}),
		document.New(document.Fields{Title: "c"}),
	}
}

func TestBackend_TruncatesToRows(t *testing.T) {
	b := New(threeDocs(), -1, facet.Counts{})
	page, err := b.Search(context.Background(), "q", 2, domain.Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Docs) != 2 {
		t.Errorf("docs = %d, want 2", len(page.Docs))
	}
	if page.NumFound != 3 {
		t.Errorf("NumFound = %d, want len(docs)", page.NumFound)
	}
}

func TestBackend_FixedNumFound(t *testing.T) {
	b := New(threeDocs(), 500, facet.Counts{})
	page, _ := b.Search(context.Background(), "q", 10, domain.Filters{})
	if page.NumFound != 500 || len(page.Docs) != 3 {
		t.Errorf("page = %d docs, numFound %d", len(page.Docs), page.NumFound)
	}
}

func TestBackend_RecordsQueries(t *testing.T) {
	b := New(nil, -1, facet.Counts{})
	_, _ = b.Search(context.Background(), "first", 1, domain.Filters{Product: "RHEL"})
	<-b.SearchAsync(context.Background(), "second", 1, domain.Filters{})

	if q := b.Queries(); len(q) != 2 || q[0] != "first" || q[1] != "second" {
		t.Errorf("Queries = %v", q)
	}
	calls := b.Calls()
	if calls[0].Filters.Product != "RHEL" || calls[0].Async || !calls[1].Async {
		t.Errorf("Calls = %+v", calls)
	}
}

func TestBackend_FailWith(t *testing.T) {
	boom := errors.New("boom")
	b := New(threeDocs(), -1, facet.Counts{})
	b.FailWith(boom, nil)

	if _, err := b.Search(context.Background(), "q", 1, domain.Filters{}); !errors.Is(err, boom) {
		t.Errorf("first call err = %v", err)
	}
	if _, err := b.Search(context.Background(), "q", 1, domain.Filters{}); err != nil {
		t.Errorf("second call err = %v", err)
	}
	out := <-b.SearchAsync(context.Background(), "q", 1, domain.Filters{})
	if out.Err != nil || len(out.Page.Docs) != 1 {
		t.Errorf("async outcome = %+v", out)
	}
}

func TestBackend_Close(t *testing.T) {
	b := New(nil, 0, facet.Counts{})
	_ = b.Close()
	if !b.Closed() {
		t.Error("expected Closed() after Close")
	}
}
