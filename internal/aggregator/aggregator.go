// Package aggregator fans out account fetches under a bounded concurrency
// limit and folds the results into one consistent report.
package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
	"github.com/cloud-cost-manager/cloudcost-go/internal/observability"
)

const (
	// DefaultConcurrency bounds parallel account fetches.
	DefaultConcurrency = 4
	// DefaultTopN is the length cap for the merged top services list.
	DefaultTopN = 10
)

// AccountFetcher fetches one account's report inputs. It never fails:
// errors are contained in the returned result.
type AccountFetcher interface {
	Fetch(ctx context.Context, account domain.AccountConfig, current, previous domain.Window) domain.AccountResult
}

// Aggregator builds reports over a set of configured accounts.
type Aggregator struct {
	fetcher     AccountFetcher
	concurrency int
	topN        int
	metrics     *observability.Metrics

	// now is injectable for testing.
	now func() time.Time
}

// New creates an Aggregator. Non-positive concurrency or topN fall back
// to the defaults; metrics may be nil.
func New(fetcher AccountFetcher, concurrency, topN int, metrics *observability.Metrics) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Aggregator{
		fetcher:     fetcher,
		concurrency: concurrency,
		topN:        topN,
		metrics:     metrics,
		now:         time.Now,
	}
}

// BuildReport fetches all accounts concurrently and folds the results.
// It always produces a report: failed accounts appear as flagged
// summaries and contribute nothing to the totals. Summary order follows
// the configured account order, not fetch completion order.
func (a *Aggregator) BuildReport(ctx context.Context, accounts []domain.AccountConfig) domain.Report {
	started := time.Now()
	today := a.now().UTC()
	current := MonthToDate(today)
	previous := PreviousMonthSamePoint(today)

	results := make([]domain.AccountResult, len(accounts))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i, account := range accounts {
		g.Go(func() error {
			if ctx.Err() != nil {
				// Out of time before this fetch started; record it as a
				// transient provider failure rather than dropping it.
				results[i] = domain.AccountResult{
					Ref: account.Ref,
					Err: &domain.ProviderError{
						Kind: domain.ProviderUnavailable,
						Op:   "fetch",
						Err:  ctx.Err(),
					},
				}
				return nil
			}
			results[i] = a.fetcher.Fetch(ctx, account, current, previous)
			return nil
		})
	}
	_ = g.Wait()

	report := a.fold(ctx, current, previous, results)
	a.metrics.RecordReportDuration(ctx, time.Since(started))
	slog.Info("report built",
		"accounts", len(accounts),
		"failed", len(accounts)-succeededCount(results),
		"total_all", report.TotalAll,
		"duration", time.Since(started))
	return report
}

func (a *Aggregator) fold(ctx context.Context, current, previous domain.Window, results []domain.AccountResult) domain.Report {
	report := domain.Report{
		MonthStart:        current.Start.Format(domain.DateLayout),
		MonthEndExclusive: current.EndExclusive.Format(domain.DateLayout),
		PrevStart:         previous.Start.Format(domain.DateLayout),
		PrevEndExclusive:  previous.EndExclusive.Format(domain.DateLayout),
		Summaries:         make([]domain.AccountSummary, 0, len(results)),
	}

	merged := make(map[string]float64)
	for _, r := range results {
		if r.Failed() {
			kind := domain.ErrorKind(r.Err)
			a.metrics.RecordAccountFailure(ctx, kind)
			slog.Warn("account fetch failed", "account_ref", r.Ref, "kind", kind, "error", r.Err)
			report.Summaries = append(report.Summaries, domain.AccountSummary{
				AccountRef:  r.Ref,
				Failed:      true,
				ErrorKind:   kind,
				ErrorDetail: r.Err.Error(),
			})
			continue
		}

		report.TotalAll += r.Current.Total
		report.PrevTotal += r.Previous.Total
		for service, amount := range r.Current.Services {
			merged[service] += amount
		}
		report.Summaries = append(report.Summaries, domain.AccountSummary{
			AccountID:   r.Identity.AccountID,
			AccountName: r.Identity.Name,
			AccountRef:  r.Ref,
			Total:       r.Current.Total,
			Services:    r.Current.Services,
		})
	}

	report.Delta = report.TotalAll - report.PrevTotal
	if report.PrevTotal != 0 {
		report.DeltaPct = report.Delta / report.PrevTotal * 100
	}
	report.TopServices = topServices(merged, a.topN)
	return report
}

// topServices sorts merged service costs descending by cost, breaking
// ties ascending by name for deterministic output, truncated to n.
func topServices(merged map[string]float64, n int) []domain.ServiceCost {
	services := make([]domain.ServiceCost, 0, len(merged))
	for service, cost := range merged {
		services = append(services, domain.ServiceCost{Service: service, Cost: cost})
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].Cost != services[j].Cost {
			return services[i].Cost > services[j].Cost
		}
		return services[i].Service < services[j].Service
	})
	if len(services) > n {
		services = services[:n]
	}
	return services
}

func succeededCount(results []domain.AccountResult) int {
	n := 0
	for _, r := range results {
		if !r.Failed() {
			n++
		}
	}
	return n
}
