// Package awsauth resolves account configuration entries into usable AWS
// credentials: static key pairs, shared-config profiles, or assumed roles.
package awsauth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
	"github.com/cloud-cost-manager/cloudcost-go/internal/provider"
	"github.com/cloud-cost-manager/cloudcost-go/internal/ratelimit"
)

var roleARNRe = regexp.MustCompile(`^arn:aws:iam::\d{12}:role/.+$`)

// ValidateRoleARN checks that the ARN looks like a valid IAM role ARN.
func ValidateRoleARN(arn string) error {
	if !roleARNRe.MatchString(arn) {
		return fmt.Errorf("invalid IAM role ARN: %q", arn)
	}
	return nil
}

// Credentials is a resolved, possibly time-limited AWS configuration.
// A zero expiry means the credentials do not expire.
type Credentials struct {
	cfg       aws.Config
	expiresAt time.Time
	now       func() time.Time
}

// ProviderID implements provider.Credentials.
func (c *Credentials) ProviderID() string { return "aws" }

// Expired implements provider.Credentials.
func (c *Credentials) Expired() bool {
	if c.expiresAt.IsZero() {
		return false
	}
	return c.now().After(c.expiresAt)
}

// Config returns the underlying AWS configuration.
func (c *Credentials) Config() aws.Config { return c.cfg }

// STSAPI is the subset of the STS client used for role assumption.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Resolver turns AccountConfig entries into AWS credentials.
type Resolver struct {
	region          string
	limiter         *ratelimit.ServiceLimiter
	sessionDuration time.Duration

	// injectable for testing
	loadConfig func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error)
	stsFactory func(cfg aws.Config) STSAPI
	now        func() time.Time
}

// Compile-time check.
var _ provider.CredentialResolver = (*Resolver)(nil)

// NewResolver creates a Resolver for the given region. The limiter, if
// non-nil, throttles STS calls shared across concurrent fetchers.
func NewResolver(region string, limiter *ratelimit.ServiceLimiter) *Resolver {
	return &Resolver{
		region:          region,
		limiter:         limiter,
		sessionDuration: time.Hour,
		loadConfig:      awsconfig.LoadDefaultConfig,
		stsFactory:      func(cfg aws.Config) STSAPI { return sts.NewFromConfig(cfg) },
		now:             time.Now,
	}
}

// Resolve produces credentials for one account. Static keys and profiles
// resolve locally; assume-role performs one STS call.
func (r *Resolver) Resolve(ctx context.Context, account domain.AccountConfig) (provider.Credentials, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	switch {
	case account.StaticKeys != nil:
		return r.resolveStatic(account), nil
	case account.Profile != "":
		return r.resolveProfile(ctx, account)
	default:
		return r.resolveAssumeRole(ctx, account)
	}
}

func (r *Resolver) resolveStatic(account domain.AccountConfig) *Credentials {
	keys := account.StaticKeys
	cfg := aws.Config{
		Region: r.region,
		Credentials: credentials.NewStaticCredentialsProvider(
			keys.AccessKeyID, keys.SecretAccessKey, keys.SessionToken),
	}
	return &Credentials{cfg: cfg, now: r.now}
}

func (r *Resolver) resolveProfile(ctx context.Context, account domain.AccountConfig) (*Credentials, error) {
	cfg, err := r.loadConfig(ctx,
		awsconfig.WithRegion(r.region),
		awsconfig.WithSharedConfigProfile(account.Profile),
	)
	if err != nil {
		var notExist awsconfig.SharedConfigProfileNotExistError
		if errors.As(err, &notExist) {
			return nil, &domain.CredentialError{
				Kind:       domain.CredentialProfileNotFound,
				AccountRef: account.Ref,
				Err:        err,
			}
		}
		return nil, fmt.Errorf("awsauth: load profile %s: %w", account.Profile, err)
	}
	return &Credentials{cfg: cfg, now: r.now}, nil
}

func (r *Resolver) resolveAssumeRole(ctx context.Context, account domain.AccountConfig) (*Credentials, error) {
	spec := account.AssumeRole
	if err := ValidateRoleARN(spec.RoleARN); err != nil {
		return nil, &domain.CredentialError{
			Kind:       domain.CredentialAssumeRoleDenied,
			AccountRef: account.Ref,
			Err:        err,
		}
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(r.region)}
	if spec.BaseProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(spec.BaseProfile))
	}
	baseCfg, err := r.loadConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("awsauth: load base config: %w", err)
	}

	if err := r.limiter.Wait(ctx, "STS"); err != nil {
		return nil, err
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(spec.RoleARN),
		RoleSessionName: aws.String("cloudcost-" + account.Ref),
		DurationSeconds: aws.Int32(int32(r.sessionDuration.Seconds())),
	}
	if spec.ExternalID != "" {
		input.ExternalId = aws.String(spec.ExternalID)
	}

	out, err := r.stsFactory(baseCfg).AssumeRole(ctx, input)
	if err != nil {
		return nil, &domain.CredentialError{
			Kind:       classifyAssumeRole(err),
			AccountRef: account.Ref,
			Err:        err,
		}
	}
	if out.Credentials == nil {
		return nil, &domain.CredentialError{
			Kind:       domain.CredentialAssumeRoleDenied,
			AccountRef: account.Ref,
			Err:        fmt.Errorf("assume role returned no credentials"),
		}
	}

	creds := out.Credentials
	cfg := aws.Config{
		Region: r.region,
		Credentials: credentials.NewStaticCredentialsProvider(
			aws.ToString(creds.AccessKeyId),
			aws.ToString(creds.SecretAccessKey),
			aws.ToString(creds.SessionToken)),
	}

	expiresAt := r.now().Add(r.sessionDuration)
	if creds.Expiration != nil {
		expiresAt = *creds.Expiration
	}
	return &Credentials{cfg: cfg, expiresAt: expiresAt, now: r.now}, nil
}

// classifyAssumeRole maps an STS failure to a credential error kind.
// Throttling is retryable; everything else is treated as a denied
// assumption.
func classifyAssumeRole(err error) domain.CredentialErrorKind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
			return domain.CredentialAssumeRoleThrottle
		}
	}
	return domain.CredentialAssumeRoleDenied
}
