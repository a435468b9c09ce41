// Package testutil provides in-memory stubs for the credential resolver
// and cost provider interfaces.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
	"github.com/cloud-cost-manager/cloudcost-go/internal/provider"
)

// StubCredentials satisfies provider.Credentials.
type StubCredentials struct {
	Ref       string
	IsExpired bool
}

func (c *StubCredentials) ProviderID() string { return "stub" }
func (c *StubCredentials) Expired() bool      { return c.IsExpired }

// StubResolver satisfies provider.CredentialResolver. Resolution fails
// for refs listed in Errs.
type StubResolver struct {
	Errs map[string]error

	mu    sync.Mutex
	calls int
}

func (r *StubResolver) Resolve(_ context.Context, account domain.AccountConfig) (provider.Credentials, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if err, ok := r.Errs[account.Ref]; ok {
		return nil, err
	}
	return &StubCredentials{Ref: account.Ref}, nil
}

// Calls returns how many resolutions were attempted.
func (r *StubResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// StubAccount is the canned data for one account ref.
type StubAccount struct {
	Identity domain.AccountIdentity
	Current  domain.PeriodCost
	Previous domain.PeriodCost

	IdentityErr error
	CurrentErr  error
	PreviousErr error
}

// StubProvider satisfies provider.CostProvider with canned per-ref data.
// CurrentStart tells it which window is the current period.
type StubProvider struct {
	Accounts     map[string]StubAccount
	CurrentStart time.Time

	mu    sync.Mutex
	calls int
}

// Calls returns how many provider operations were invoked.
func (p *StubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *StubProvider) record() {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
}

func (p *StubProvider) account(creds provider.Credentials) (StubAccount, error) {
	stub, ok := creds.(*StubCredentials)
	if !ok {
		return StubAccount{}, fmt.Errorf("testutil: unexpected credentials type %T", creds)
	}
	acct, ok := p.Accounts[stub.Ref]
	if !ok {
		return StubAccount{}, fmt.Errorf("testutil: no stub data for %q", stub.Ref)
	}
	return acct, nil
}

func (p *StubProvider) GetIdentity(_ context.Context, creds provider.Credentials) (domain.AccountIdentity, error) {
	p.record()
	acct, err := p.account(creds)
	if err != nil {
		return domain.AccountIdentity{}, err
	}
	if acct.IdentityErr != nil {
		return domain.AccountIdentity{}, acct.IdentityErr
	}
	return acct.Identity, nil
}

func (p *StubProvider) GetCost(_ context.Context, creds provider.Credentials, window domain.Window) (domain.PeriodCost, error) {
	p.record()
	acct, err := p.account(creds)
	if err != nil {
		return domain.PeriodCost{}, err
	}
	if window.Start.Equal(p.CurrentStart) {
		if acct.CurrentErr != nil {
			return domain.PeriodCost{}, acct.CurrentErr
		}
		return acct.Current, nil
	}
	if acct.PreviousErr != nil {
		return domain.PeriodCost{}, acct.PreviousErr
	}
	return acct.Previous, nil
}
