package okp

import (
	"github.com/kailas-cloud/okp/internal/config"
	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/document"
	"github.com/kailas-cloud/okp/internal/domain/facet"
	"github.com/kailas-cloud/okp/internal/domain/result"
	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
)

type (
	// Config is the client configuration.
	Config = config.Config
	// ConfigOverride mutates a Config after environment variables are applied.
	ConfigOverride = config.Override

	// Document is one search hit.
	Document = document.Document
	// DocumentFields is the input to NewDocument.
	DocumentFields = document.Fields
	// FacetCounts holds facet counts per category.
	FacetCounts = facet.Counts
	// Result is the outcome of a retrieval: documents, facets and prompt context.
	Result = result.Result
	// Filters restricts a search by product, version and document kind.
	Filters = domain.Filters

	// Page is one backend response.
	Page = result.Page
	// PageOutcome is what Backend.SearchAsync delivers.
	PageOutcome = result.Outcome
	// Backend executes searches; see WithBackend.
	Backend = retrieve.Backend

	// Outcome is what Client.RetrieveAsync delivers.
	Outcome = retrieve.Outcome
	// Health is the CheckHealth report.
	Health = retrieve.Health

	// ConnectionError is returned when the backend cannot be reached or the
	// circuit breaker is open.
	ConnectionError = domain.ConnectionError
	// SearchError is returned for HTTP error statuses.
	SearchError = domain.SearchError
	// ResponseError is returned when the backend response cannot be decoded.
	ResponseError = domain.ResponseError
)

// Sentinel errors for errors.Is checks.
var (
	ErrRetrieval       = domain.ErrRetrieval
	ErrConnection      = domain.ErrConnection
	ErrSearch          = domain.ErrSearch
	ErrResponse        = domain.ErrResponse
	ErrCircuitOpen     = domain.ErrCircuitOpen
	ErrInvalidArgument = domain.ErrInvalidArgument
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrClientClosed    = domain.ErrClientClosed
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config { return config.Default() }

// ConfigFromEnv builds a validated Config from defaults, RHOKP_* environment
// variables and the given overrides, in that order.
func ConfigFromEnv(overrides ...ConfigOverride) (Config, error) {
	return config.FromEnv(overrides...)
}

// NewDocument builds a Document, for custom backends.
func NewDocument(f DocumentFields) Document { return document.New(f) }

// NewFacetCounts builds facet counts, for custom backends.
func NewFacetCounts(products, documentKinds, versions, contentSubtypes map[string]int) FacetCounts {
	return facet.New(products, documentKinds, versions, contentSubtypes)
}
