package retrieve

import (
	"context"
	"time"

	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/result"
)

// Backend executes one search request against the knowledge index.
// Search uses the blocking pool, SearchAsync the concurrent one.
type Backend interface {
	Search(ctx context.Context, query string, rows int, f domain.Filters) (result.Page, error)
	SearchAsync(ctx context.Context, query string, rows int, f domain.Filters) <-chan result.Outcome
}

// Recorder receives retrieval measurements.
type Recorder interface {
	ObserveRequest(mode string, d time.Duration, err error)
	ObserveAttempt(outcome string)
	ObserveCache(hit bool)
	SetBreakerState(state int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, time.Duration, error) {}
func (nopRecorder) ObserveAttempt(string)                       {}
func (nopRecorder) ObserveCache(bool)                           {}
func (nopRecorder) SetBreakerState(int)                         {}
