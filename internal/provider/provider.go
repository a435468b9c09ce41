// Package provider defines the capability interface over a cloud billing
// backend. The aggregation engine depends only on these contracts; adding
// another cloud means implementing them, nothing more.
package provider

import (
	"context"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// Credentials is an opaque, time-scoped capability used to call a cost
// provider. Instances are owned by the fetch that requested them and are
// never persisted.
type Credentials interface {
	// ProviderID names the provider family the credentials belong to.
	ProviderID() string
	// Expired reports whether the credentials are past their validity window.
	Expired() bool
}

// CredentialResolver turns one account configuration entry into usable
// credentials. Resolution may perform one network call (role assumption).
type CredentialResolver interface {
	Resolve(ctx context.Context, account domain.AccountConfig) (Credentials, error)
}

// CostProvider exposes the two billing operations the aggregator needs.
// Calls are stateless and date-range scoped so current and previous
// periods are queried symmetrically.
type CostProvider interface {
	GetIdentity(ctx context.Context, creds Credentials) (domain.AccountIdentity, error)
	GetCost(ctx context.Context, creds Credentials, window domain.Window) (domain.PeriodCost, error)
}
