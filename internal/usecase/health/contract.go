package health

import (
	"context"

	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
)

// OKPChecker probes the knowledge portal.
type OKPChecker interface {
	CheckHealth(ctx context.Context) retrieve.Health
}

// AnswerChecker checks chat provider availability.
type AnswerChecker interface {
	HealthCheck(ctx context.Context) error
}
