package facet

import "encoding/json"

// Counts holds per-value document counts for the facet fields (immutable value object).
type Counts struct {
	products        map[string]int
	documentKinds   map[string]int
	versions        map[string]int
	contentSubtypes map[string]int
}

// New creates Counts. Entries with a count <= 0 are dropped.
func New(products, documentKinds, versions, contentSubtypes map[string]int) Counts {
	return Counts{
		products:        positive(products),
		documentKinds:   positive(documentKinds),
		versions:        positive(versions),
		contentSubtypes: positive(contentSubtypes),
	}
}

// Products returns counts per product.
func (c *Counts) Products() map[string]int { return clone(c.products) }

// DocumentKinds returns counts per document kind.
func (c *Counts) DocumentKinds() map[string]int { return clone(c.documentKinds) }

// Versions returns counts per documentation version.
func (c *Counts) Versions() map[string]int { return clone(c.versions) }

// ContentSubtypes returns counts per portal content subtype.
func (c *Counts) ContentSubtypes() map[string]int { return clone(c.contentSubtypes) }

// IsEmpty reports whether no facet carries a value.
func (c *Counts) IsEmpty() bool {
	return len(c.products) == 0 && len(c.documentKinds) == 0 &&
		len(c.versions) == 0 && len(c.contentSubtypes) == 0
}

// MarshalJSON encodes the four facet maps; absent maps encode as {}.
func (c Counts) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Products        map[string]int `json:"products"`
		DocumentKinds   map[string]int `json:"document_kinds"`
		Versions        map[string]int `json:"versions"`
		ContentSubtypes map[string]int `json:"content_subtypes"`
	}{
		Products:        nonNil(c.products),
		DocumentKinds:   nonNil(c.documentKinds),
		Versions:        nonNil(c.versions),
		ContentSubtypes: nonNil(c.contentSubtypes),
	})
}

func positive(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func clone(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
