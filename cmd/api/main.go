// Command api runs the HTTP API server for the cloud cost report service.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cloud-cost-manager/cloudcost-go/internal/aggregator"
	"github.com/cloud-cost-manager/cloudcost-go/internal/api"
	"github.com/cloud-cost-manager/cloudcost-go/internal/awsauth"
	"github.com/cloud-cost-manager/cloudcost-go/internal/config"
	"github.com/cloud-cost-manager/cloudcost-go/internal/fetcher"
	"github.com/cloud-cost-manager/cloudcost-go/internal/observability"
	"github.com/cloud-cost-manager/cloudcost-go/internal/provider/awscost"
	"github.com/cloud-cost-manager/cloudcost-go/internal/ratelimit"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := observability.InitLogger(cfg.LogLevel)

	var metrics *observability.Metrics
	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(context.Background(), "cloudcost-api")
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
		metrics, err = observability.NewMetrics()
		if err != nil {
			logger.Error("metrics init failed", "error", err)
		}
	}

	accounts, err := config.LoadAccounts(cfg)
	if err != nil {
		logger.Error("account configuration error", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewServiceLimiter(ratelimit.DefaultServiceRates())
	resolver := awsauth.NewResolver(cfg.AWSRegion, limiter)
	costs := awscost.New(limiter, metrics)
	f := fetcher.New(resolver, costs, fetcher.DefaultRetryPolicy())
	agg := aggregator.New(f, cfg.Concurrency, cfg.TopN, metrics)

	srv, err := api.New(context.Background(), agg, api.Options{
		Accounts:    accounts,
		CORSOrigins: cfg.CORSOrigins,
		Auth: api.AuthConfig{
			Mode:         cfg.AuthMode,
			TrustHeader:  cfg.TrustHeader,
			OIDCIssuer:   cfg.OIDCIssuer,
			OIDCAudience: cfg.OIDCAudience,
		},
		RequestTimeout: cfg.RequestTimeout,
		CacheTTL:       cfg.CacheTTL,
	})
	if err != nil {
		logger.Error("server init failed", "error", err)
		os.Exit(1)
	}

	var handler http.Handler = srv
	if cfg.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "cloudcost-api")
	}

	addr := ":" + cfg.APIPort
	logger.Info("starting API server",
		"addr", addr,
		"accounts", len(accounts),
		"auth_mode", string(cfg.AuthMode))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
