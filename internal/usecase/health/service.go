package health

import (
	"context"

	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates that an optional component failed.
	Degraded Status = "degraded"
	// Unhealthy indicates that the knowledge portal is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	OKP    retrieve.Health
}

// Service coordinates health checks.
type Service struct {
	okp    OKPChecker
	answer AnswerChecker
}

// New creates a Service. answer can be nil.
func New(okp OKPChecker, answer AnswerChecker) *Service {
	return &Service{okp: okp, answer: answer}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	okp := s.okp.CheckHealth(ctx)
	if okp.Healthy() {
		checks["okp"] = CheckOK
	} else {
		checks["okp"] = CheckError
	}

	if s.answer != nil {
		if err := s.answer.HealthCheck(ctx); err != nil {
			checks["llm"] = CheckError
		} else {
			checks["llm"] = CheckOK
		}
	}

	status := Healthy
	switch {
	case checks["okp"] == CheckError:
		status = Unhealthy
	case checks["llm"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks, OKP: okp}
}
