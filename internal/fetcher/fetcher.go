// Package fetcher orchestrates the per-account fetch sequence: resolve
// credentials, then query identity and both cost periods. It is the
// failure containment boundary for one account; Fetch never fails past
// its own result.
package fetcher

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
	"github.com/cloud-cost-manager/cloudcost-go/internal/provider"
)

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard bounds: 4 attempts, 250ms base
// doubling per attempt, capped at 10s per sleep.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Fetcher fetches one account's report inputs.
type Fetcher struct {
	resolver provider.CredentialResolver
	costs    provider.CostProvider
	retry    RetryPolicy

	// sleep is injectable for testing.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Fetcher over the given resolver and cost provider.
func New(resolver provider.CredentialResolver, costs provider.CostProvider, retry RetryPolicy) *Fetcher {
	return &Fetcher{
		resolver: resolver,
		costs:    costs,
		retry:    retry,
		sleep:    sleepCtx,
	}
}

// Fetch runs the full sequence for one account and always returns a
// result: success with identity and both period costs, or the contained
// failure. The three post-credential queries run concurrently.
func (f *Fetcher) Fetch(ctx context.Context, account domain.AccountConfig, current, previous domain.Window) domain.AccountResult {
	result := domain.AccountResult{Ref: account.Ref}

	slog.Debug("account fetch", "account_ref", account.Ref, "phase", "resolving_credentials")
	var creds provider.Credentials
	err := f.withRetry(ctx, "resolve", func(ctx context.Context) error {
		var err error
		creds, err = f.resolver.Resolve(ctx, account)
		return err
	})
	if err != nil {
		result.Err = err
		return result
	}

	var (
		identity domain.AccountIdentity
		cur      domain.PeriodCost
		prev     domain.PeriodCost
	)

	slog.Debug("account fetch", "account_ref", account.Ref, "phase", "fetching")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.withRetry(gctx, "identity", func(ctx context.Context) error {
			var err error
			identity, err = f.costs.GetIdentity(ctx, creds)
			return err
		})
	})
	g.Go(func() error {
		return f.withRetry(gctx, "current_period", func(ctx context.Context) error {
			var err error
			cur, err = f.costs.GetCost(ctx, creds, current)
			return err
		})
	})
	g.Go(func() error {
		return f.withRetry(gctx, "previous_period", func(ctx context.Context) error {
			var err error
			prev, err = f.costs.GetCost(ctx, creds, previous)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		result.Err = err
		return result
	}

	if identity.Name == "" {
		identity.Name = account.Ref
	}
	result.Identity = identity
	result.Current = cur
	result.Previous = prev
	return result
}

// withRetry runs fn, retrying transient failures with exponential backoff
// and jitter. The last error kind is preserved when the attempt budget is
// exhausted. Cancellation converts to a transient provider failure so a
// timed-out account reads as unavailable, not as a caller error.
func (f *Fetcher) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < f.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return cancelled(op, ctx)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return cancelled(op, ctx)
		}
		if !domain.RetryableError(lastErr) {
			return lastErr
		}
		if attempt == f.retry.MaxAttempts-1 {
			break
		}

		slog.Debug("retrying after transient failure",
			"op", op, "attempt", attempt+1, "error", lastErr)
		if err := f.sleep(ctx, f.backoff(attempt)); err != nil {
			return cancelled(op, ctx)
		}
	}
	return lastErr
}

// backoff computes BaseDelay*2^attempt with ±25% jitter, capped at MaxDelay.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := float64(f.retry.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(f.retry.MaxDelay) {
		d = float64(f.retry.MaxDelay)
	}
	jitter := d * 0.25
	d = d - jitter + 2*jitter*rand.Float64()
	return time.Duration(d)
}

func cancelled(op string, ctx context.Context) error {
	return &domain.ProviderError{
		Kind: domain.ProviderUnavailable,
		Op:   op,
		Err:  ctx.Err(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
