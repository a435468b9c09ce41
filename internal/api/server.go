// Package api exposes the cost report over HTTP with a pluggable
// authorization gate.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cloud-cost-manager/cloudcost-go/internal/config"
	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// ReportBuilder produces one report over the configured accounts. It
// never fails; partial account failures are flagged inside the report.
type ReportBuilder interface {
	BuildReport(ctx context.Context, accounts []domain.AccountConfig) domain.Report
}

// AuthConfig selects and parameterizes the authorization gate.
type AuthConfig struct {
	Mode         config.AuthMode
	TrustHeader  string
	OIDCIssuer   string
	OIDCAudience string
}

// Options configures a Server.
type Options struct {
	Accounts       []domain.AccountConfig
	CORSOrigins    []string
	Auth           AuthConfig
	RequestTimeout time.Duration
	// CacheTTL enables the time-boxed report cache; zero disables it.
	CacheTTL time.Duration
}

// Server is the HTTP API server for the cost report.
type Server struct {
	builder  ReportBuilder
	accounts []domain.AccountConfig
	timeout  time.Duration
	cache    *reportCache
	mux      *http.ServeMux
	handler  http.Handler
}

// New creates a Server. ctx is used for OIDC issuer discovery when that
// auth mode is selected.
func New(ctx context.Context, builder ReportBuilder, opts Options) (*Server, error) {
	s := &Server{
		builder:  builder,
		accounts: opts.Accounts,
		timeout:  opts.RequestTimeout,
		mux:      http.NewServeMux(),
	}
	if opts.CacheTTL > 0 {
		s.cache = newReportCache(opts.CacheTTL, accountsKey(opts.Accounts))
	}
	s.routes()

	gate, err := authGate(ctx, opts.Auth)
	if err != nil {
		return nil, err
	}
	s.handler = requestID(logging(cors(opts.CORSOrigins, opts.Auth.TrustHeader, gate(s.mux))))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /report/aws", s.handleReport)
}
