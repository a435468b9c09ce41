package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds OTel metric instruments for the cost reporting engine.
// A nil *Metrics is a no-op so tests and the CLI can skip telemetry.
type Metrics struct {
	ProviderCalls   metric.Int64Counter
	AccountFailures metric.Int64Counter
	ReportDuration  metric.Float64Histogram
}

// NewMetrics creates the cost report metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("cloudcost")

	providerCalls, err := meter.Int64Counter("cloudcost.provider.calls",
		metric.WithDescription("Number of billing provider API calls"),
	)
	if err != nil {
		return nil, err
	}

	accountFailures, err := meter.Int64Counter("cloudcost.account.failures",
		metric.WithDescription("Number of accounts that failed during a report build"),
	)
	if err != nil {
		return nil, err
	}

	reportDuration, err := meter.Float64Histogram("cloudcost.report.duration_seconds",
		metric.WithDescription("Wall time of one full report build"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ProviderCalls:   providerCalls,
		AccountFailures: accountFailures,
		ReportDuration:  reportDuration,
	}, nil
}

// RecordProviderCall records one billing API call.
func (m *Metrics) RecordProviderCall(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.ProviderCalls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}

// RecordAccountFailure records one account failing with the given error kind.
func (m *Metrics) RecordAccountFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.AccountFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordReportDuration records the wall time of a report build.
func (m *Metrics) RecordReportDuration(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.ReportDuration.Record(ctx, d.Seconds())
}
