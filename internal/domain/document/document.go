package document

import "encoding/json"

// Fields carries the raw values used to build a Document.
type Fields struct {
	Title        string
	Snippet      string
	URLSlug      string
	ResourceName string
	DocumentKind string
	Product      string
	Version      string
	Score        float64
	LastModified string
	ViewURI      string
	Summary      string
	Headings     []string
	Severity     string
	AdvisoryType string
	Synopsis     string
}

// Document is one search hit (immutable value object).
// Text fields are already free of highlight markup and HTML entities.
type Document struct {
	title        string
	snippet      string
	urlSlug      string
	resourceName string
	documentKind string
	product      string
	version      string
	score        float64
	lastModified string
	viewURI      string
	summary      string
	headings     []string
	severity     string
	advisoryType string
	synopsis     string
}

// New creates a Document. Headings are copied; a negative score is clamped to 0.
func New(f Fields) Document {
	score := f.Score
	if score < 0 {
		score = 0
	}
	return Document{
		title:        f.Title,
		snippet:      f.Snippet,
		urlSlug:      f.URLSlug,
		resourceName: f.ResourceName,
		documentKind: f.DocumentKind,
		product:      f.Product,
		version:      f.Version,
		score:        score,
		lastModified: f.LastModified,
		viewURI:      f.ViewURI,
		summary:      f.Summary,
		headings:     cloneStrings(f.Headings),
		severity:     f.Severity,
		advisoryType: f.AdvisoryType,
		synopsis:     f.Synopsis,
	}
}

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Snippet returns the highlighted excerpt, possibly empty.
func (d *Document) Snippet() string { return d.snippet }

// URLSlug returns the portal path without a leading slash.
func (d *Document) URLSlug() string { return d.urlSlug }

// ResourceName returns the backend resource identifier.
func (d *Document) ResourceName() string { return d.resourceName }

// DocumentKind returns the kind, e.g. "documentation" or "solution".
func (d *Document) DocumentKind() string { return d.documentKind }

// Product returns the product name.
func (d *Document) Product() string { return d.product }

// Version returns the documentation version.
func (d *Document) Version() string { return d.version }

// Score returns the backend relevance score.
func (d *Document) Score() float64 { return d.score }

// LastModified returns the last modification timestamp as sent by the backend.
func (d *Document) LastModified() string { return d.lastModified }

// ViewURI returns the view URI.
func (d *Document) ViewURI() string { return d.viewURI }

// Summary returns the portal summary.
func (d *Document) Summary() string { return d.summary }

// Headings returns a copy of the second-level headings.
func (d *Document) Headings() []string { return cloneStrings(d.headings) }

// Severity returns the security severity, set for CVEs and errata.
func (d *Document) Severity() string { return d.severity }

// AdvisoryType returns the advisory type, set for errata.
func (d *Document) AdvisoryType() string { return d.advisoryType }

// Synopsis returns the advisory synopsis.
func (d *Document) Synopsis() string { return d.synopsis }

// Fields returns the document as a plain struct.
func (d *Document) Fields() Fields {
	return Fields{
		Title:        d.title,
		Snippet:      d.snippet,
		URLSlug:      d.urlSlug,
		ResourceName: d.resourceName,
		DocumentKind: d.documentKind,
		Product:      d.product,
		Version:      d.version,
		Score:        d.score,
		LastModified: d.lastModified,
		ViewURI:      d.viewURI,
		Summary:      d.summary,
		Headings:     cloneStrings(d.headings),
		Severity:     d.severity,
		AdvisoryType: d.advisoryType,
		Synopsis:     d.synopsis,
	}
}

type documentJSON struct {
	Title        string   `json:"title"`
	Snippet      string   `json:"snippet"`
	URLSlug      string   `json:"url_slug"`
	ResourceName string   `json:"resource_name"`
	DocumentKind string   `json:"document_kind"`
	Product      string   `json:"product"`
	Version      string   `json:"version"`
	Score        float64  `json:"score"`
	LastModified string   `json:"last_modified"`
	ViewURI      string   `json:"view_uri"`
	Summary      string   `json:"summary"`
	Headings     []string `json:"headings"`
	Severity     string   `json:"severity"`
	AdvisoryType string   `json:"advisory_type"`
	Synopsis     string   `json:"synopsis"`
}

// MarshalJSON encodes the document with snake_case keys.
func (d Document) MarshalJSON() ([]byte, error) {
	headings := d.headings
	if headings == nil {
		headings = []string{}
	}
	return json.Marshal(documentJSON{
		Title:        d.title,
		Snippet:      d.snippet,
		URLSlug:      d.urlSlug,
		ResourceName: d.resourceName,
		DocumentKind: d.documentKind,
		Product:      d.product,
		Version:      d.version,
		Score:        d.score,
		LastModified: d.lastModified,
		ViewURI:      d.viewURI,
		Summary:      d.summary,
		Headings:     headings,
		Severity:     d.severity,
		AdvisoryType: d.advisoryType,
		Synopsis:     d.synopsis,
	})
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
