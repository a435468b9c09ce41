// Package awscost implements the cost provider interface on AWS Cost
// Explorer, with account identity resolved through STS, Organizations,
// and IAM account aliases.
package awscost

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/cloud-cost-manager/cloudcost-go/internal/awsauth"
	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
	"github.com/cloud-cost-manager/cloudcost-go/internal/observability"
	"github.com/cloud-cost-manager/cloudcost-go/internal/provider"
	"github.com/cloud-cost-manager/cloudcost-go/internal/ratelimit"
)

// CostExplorerAPI is the subset of the Cost Explorer client used here.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *ce.GetCostAndUsageInput, optFns ...func(*ce.Options)) (*ce.GetCostAndUsageOutput, error)
}

// STSAPI is the subset of the STS client used here.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// OrganizationsAPI is the subset of the Organizations client used here.
type OrganizationsAPI interface {
	DescribeAccount(ctx context.Context, params *organizations.DescribeAccountInput, optFns ...func(*organizations.Options)) (*organizations.DescribeAccountOutput, error)
}

// IAMAPI is the subset of the IAM client used here.
type IAMAPI interface {
	ListAccountAliases(ctx context.Context, params *iam.ListAccountAliasesInput, optFns ...func(*iam.Options)) (*iam.ListAccountAliasesOutput, error)
}

type clients struct {
	ce  CostExplorerAPI
	sts STSAPI
	org OrganizationsAPI
	iam IAMAPI
}

// Provider queries AWS billing data for resolved account credentials.
type Provider struct {
	limiter    *ratelimit.ServiceLimiter
	metrics    *observability.Metrics
	newClients func(cfg aws.Config) clients
}

// Compile-time check.
var _ provider.CostProvider = (*Provider)(nil)

// New creates a Provider. The limiter, if non-nil, is shared across all
// fetchers using this provider; metrics may be nil.
func New(limiter *ratelimit.ServiceLimiter, metrics *observability.Metrics) *Provider {
	return &Provider{
		limiter: limiter,
		metrics: metrics,
		newClients: func(cfg aws.Config) clients {
			return clients{
				ce:  ce.NewFromConfig(cfg),
				sts: sts.NewFromConfig(cfg),
				org: organizations.NewFromConfig(cfg),
				iam: iam.NewFromConfig(cfg),
			}
		},
	}
}

// NewFromAPIs creates a Provider from explicit API implementations (for testing).
func NewFromAPIs(ceAPI CostExplorerAPI, stsAPI STSAPI, orgAPI OrganizationsAPI, iamAPI IAMAPI) *Provider {
	c := clients{ce: ceAPI, sts: stsAPI, org: orgAPI, iam: iamAPI}
	return &Provider{
		newClients: func(aws.Config) clients { return c },
	}
}

func (p *Provider) clientsFor(creds provider.Credentials) (clients, error) {
	awsCreds, ok := creds.(*awsauth.Credentials)
	if !ok {
		return clients{}, fmt.Errorf("awscost: credentials are not AWS credentials (provider %s)", creds.ProviderID())
	}
	if awsCreds.Expired() {
		return clients{}, fmt.Errorf("awscost: credentials expired, re-resolve before use")
	}
	return p.newClients(awsCreds.Config()), nil
}

// GetIdentity returns the account id and a display name for the account
// the credentials belong to. The name comes from Organizations, falling
// back to the first IAM account alias, then to the bare account id.
func (p *Provider) GetIdentity(ctx context.Context, creds provider.Credentials) (domain.AccountIdentity, error) {
	c, err := p.clientsFor(creds)
	if err != nil {
		return domain.AccountIdentity{}, err
	}

	if err := p.limiter.Wait(ctx, "STS"); err != nil {
		return domain.AccountIdentity{}, err
	}
	p.metrics.RecordProviderCall(ctx, "GetCallerIdentity")
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return domain.AccountIdentity{}, classify("GetCallerIdentity", err)
	}
	if out.Account == nil || *out.Account == "" {
		return domain.AccountIdentity{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed,
			Op:   "GetCallerIdentity",
			Err:  fmt.Errorf("response missing account id"),
		}
	}
	accountID := *out.Account

	return domain.AccountIdentity{
		AccountID: accountID,
		Name:      p.resolveAccountName(ctx, c, accountID),
	}, nil
}

// resolveAccountName tries Organizations then IAM aliases. Both lookups
// are best effort; the account id is always a usable name.
func (p *Provider) resolveAccountName(ctx context.Context, c clients, accountID string) string {
	if err := p.limiter.Wait(ctx, "Organizations"); err == nil {
		p.metrics.RecordProviderCall(ctx, "DescribeAccount")
		out, err := c.org.DescribeAccount(ctx, &organizations.DescribeAccountInput{
			AccountId: aws.String(accountID),
		})
		if err == nil && out.Account != nil && out.Account.Name != nil && *out.Account.Name != "" {
			return *out.Account.Name
		}
	}

	if err := p.limiter.Wait(ctx, "IAM"); err == nil {
		p.metrics.RecordProviderCall(ctx, "ListAccountAliases")
		out, err := c.iam.ListAccountAliases(ctx, &iam.ListAccountAliasesInput{})
		if err == nil && len(out.AccountAliases) > 0 {
			return out.AccountAliases[0]
		}
	}

	return accountID
}

// GetCost returns total and per-service cost for the window, using
// unblended cost grouped by the SERVICE dimension.
func (p *Provider) GetCost(ctx context.Context, creds provider.Credentials, window domain.Window) (domain.PeriodCost, error) {
	c, err := p.clientsFor(creds)
	if err != nil {
		return domain.PeriodCost{}, err
	}

	input := &ce.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(window.Start.Format(domain.DateLayout)),
			End:   aws.String(window.EndExclusive.Format(domain.DateLayout)),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{
				Key:  aws.String("SERVICE"),
				Type: cetypes.GroupDefinitionTypeDimension,
			},
		},
	}

	if err := p.limiter.Wait(ctx, "CostExplorer"); err != nil {
		return domain.PeriodCost{}, err
	}
	p.metrics.RecordProviderCall(ctx, "GetCostAndUsage")
	out, err := c.ce.GetCostAndUsage(ctx, input)
	if err != nil {
		return domain.PeriodCost{}, classify("GetCostAndUsage", err)
	}

	return transformCost(out)
}
