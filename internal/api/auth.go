package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/cloud-cost-manager/cloudcost-go/internal/config"
)

type contextKey string

const ctxSubject contextKey = "subject"

// SubjectFromContext extracts the verified token subject, if any.
func SubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxSubject).(string)
	return v
}

// authGate builds the authorization middleware for the configured mode.
// The health endpoint always bypasses the gate; an unauthorized request
// is rejected before any aggregator work begins.
func authGate(ctx context.Context, cfg AuthConfig) (func(http.Handler) http.Handler, error) {
	switch cfg.Mode {
	case config.AuthNone, "":
		return func(next http.Handler) http.Handler { return next }, nil
	case config.AuthHeader:
		return headerAuth(cfg.TrustHeader), nil
	case config.AuthOIDC:
		provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
		if err != nil {
			return nil, fmt.Errorf("api: oidc discovery: %w", err)
		}
		return oidcAuth(provider, cfg.OIDCAudience), nil
	}
	return nil, fmt.Errorf("api: unknown auth mode %q", cfg.Mode)
}

// headerAuth authorizes requests carrying a non-empty trust header. The
// header is assumed to be stamped by a trusted upstream gateway; its
// value is not verified.
func headerAuth(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			if strings.TrimSpace(r.Header.Get(header)) == "" {
				writeError(w, http.StatusUnauthorized, "missing trust header "+header)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// oidcAuth returns middleware that verifies JWT Bearer tokens using OIDC discovery.
func oidcAuth(provider *oidc.Provider, audience string) func(http.Handler) http.Handler {
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			token, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ctxSubject, token.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
