// Package health aggregates component health checks.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
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
}

// CachePinger checks request cache store connectivity.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	cache CachePinger
}

// New creates a Service. cache can be nil when the request cache is off.
func New(cache CachePinger) *Service {
	return &Service{cache: cache}
}

// Check runs health checks against all components. The index registry is
// in-process, so only the optional cache store can degrade the node.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		"index": CheckOK,
	}

	status := Healthy
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
			status = Degraded
		} else {
			checks["cache"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
