// Package ratelimit provides token-bucket rate limiters shared across
// concurrent account fetchers of the same provider.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ServiceRates configures per-service request rates (requests per second).
type ServiceRates struct {
	CostExplorer  float64
	STS           float64
	Organizations float64
	IAM           float64
}

// DefaultServiceRates returns conservative AWS rate limits.
func DefaultServiceRates() ServiceRates {
	return ServiceRates{
		CostExplorer:  5,
		STS:           10,
		Organizations: 5,
		IAM:           5,
	}
}

// ServiceLimiter rate-limits AWS API calls per service using token buckets.
// It is the only mutable state shared across account fetchers.
type ServiceLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewServiceLimiter creates a limiter with the given per-service rates.
func NewServiceLimiter(rates ServiceRates) *ServiceLimiter {
	limiters := map[string]*rate.Limiter{
		"CostExplorer":  rate.NewLimiter(rate.Limit(rates.CostExplorer), int(rates.CostExplorer)),
		"STS":           rate.NewLimiter(rate.Limit(rates.STS), int(rates.STS)),
		"Organizations": rate.NewLimiter(rate.Limit(rates.Organizations), int(rates.Organizations)),
		"IAM":           rate.NewLimiter(rate.Limit(rates.IAM), int(rates.IAM)),
	}
	return &ServiceLimiter{limiters: limiters}
}

// Wait blocks until a token is available for the named service, or ctx is
// cancelled. Unknown services are not limited.
func (sl *ServiceLimiter) Wait(ctx context.Context, service string) error {
	if sl == nil {
		return nil
	}
	sl.mu.RLock()
	limiter, ok := sl.limiters[service]
	sl.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", service, err)
	}
	return nil
}
