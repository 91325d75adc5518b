package sdk

// RetrieveParams are the optional parameters of Retrieve. Zero values are
// omitted from the request.
type RetrieveParams struct {
	Rows         int
	Product      string
	Version      string
	DocumentKind string
	// NoSanitize sends the query to Solr without escaping syntax characters.
	NoSanitize bool
}

// Document is one retrieved document.
type Document struct {
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

// Facets holds the facet value counts of a retrieval.
type Facets struct {
	Products        map[string]int `json:"products"`
	DocumentKinds   map[string]int `json:"document_kinds"`
	Versions        map[string]int `json:"versions"`
	ContentSubtypes map[string]int `json:"content_subtypes"`
}

// Result is the body of a successful retrieval.
type Result struct {
	Query    string     `json:"query"`
	NumFound int        `json:"num_found"`
	Docs     []Document `json:"docs"`
	Context  string     `json:"context"`
	Facets   Facets     `json:"facets"`
}

// OKPHealth is the portal probe reported by the bridge.
type OKPHealth struct {
	Status            string `json:"status"`
	NumIndexed        int    `json:"num_indexed"`
	SolrHandler       string `json:"solr_handler,omitempty"`
	BaseURL           string `json:"base_url"`
	ProductsAvailable int    `json:"products_available,omitempty"`
	Error             string `json:"error,omitempty"`
}

// HealthStatus represents the aggregated bridge health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
	OKP    OKPHealth         `json:"okp"`
}
