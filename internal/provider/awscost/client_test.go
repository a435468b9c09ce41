package awscost

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-cost-manager/cloudcost-go/internal/awsauth"
	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
	"github.com/cloud-cost-manager/cloudcost-go/internal/provider"
)

type mockCE struct {
	output   *ce.GetCostAndUsageOutput
	err      error
	gotInput *ce.GetCostAndUsageInput
}

func (m *mockCE) GetCostAndUsage(_ context.Context, params *ce.GetCostAndUsageInput, _ ...func(*ce.Options)) (*ce.GetCostAndUsageOutput, error) {
	m.gotInput = params
	return m.output, m.err
}

type mockSTS struct {
	output *sts.GetCallerIdentityOutput
	err    error
}

func (m *mockSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.output, m.err
}

type mockOrg struct {
	output *organizations.DescribeAccountOutput
	err    error
}

func (m *mockOrg) DescribeAccount(context.Context, *organizations.DescribeAccountInput, ...func(*organizations.Options)) (*organizations.DescribeAccountOutput, error) {
	return m.output, m.err
}

type mockIAM struct {
	output *iam.ListAccountAliasesOutput
	err    error
}

func (m *mockIAM) ListAccountAliases(context.Context, *iam.ListAccountAliasesInput, ...func(*iam.Options)) (*iam.ListAccountAliasesOutput, error) {
	return m.output, m.err
}

// testCredentials resolves a static key pair into AWS credentials
// without touching the network.
func testCredentials(t *testing.T) provider.Credentials {
	t.Helper()
	r := awsauth.NewResolver("us-east-1", nil)
	creds, err := r.Resolve(context.Background(), domain.AccountConfig{
		Ref:        "test",
		StaticKeys: &domain.StaticKeys{AccessKeyID: "AKIA...", SecretAccessKey: "secret"},
	})
	require.NoError(t, err)
	return creds
}

func costOutput(groups ...cetypes.Group) *ce.GetCostAndUsageOutput {
	return &ce.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{{Groups: groups}},
	}
}

func group(service, amount string) cetypes.Group {
	return cetypes.Group{
		Keys: []string{service},
		Metrics: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String(amount), Unit: aws.String("USD")},
		},
	}
}

func TestGetIdentity_NameFromOrganizations(t *testing.T) {
	p := NewFromAPIs(
		&mockCE{},
		&mockSTS{output: &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}},
		&mockOrg{output: &organizations.DescribeAccountOutput{
			Account: &orgtypes.Account{Name: aws.String("Production")},
		}},
		&mockIAM{output: &iam.ListAccountAliasesOutput{AccountAliases: []string{"prod-alias"}}},
	)

	identity, err := p.GetIdentity(context.Background(), testCredentials(t))
	require.NoError(t, err)
	assert.Equal(t, "123456789012", identity.AccountID)
	assert.Equal(t, "Production", identity.Name)
}

func TestGetIdentity_NameFallsBackToAlias(t *testing.T) {
	p := NewFromAPIs(
		&mockCE{},
		&mockSTS{output: &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}},
		&mockOrg{err: &smithy.GenericAPIError{Code: "AWSOrganizationsNotInUseException"}},
		&mockIAM{output: &iam.ListAccountAliasesOutput{AccountAliases: []string{"prod-alias"}}},
	)

	identity, err := p.GetIdentity(context.Background(), testCredentials(t))
	require.NoError(t, err)
	assert.Equal(t, "prod-alias", identity.Name)
}

func TestGetIdentity_NameFallsBackToAccountID(t *testing.T) {
	p := NewFromAPIs(
		&mockCE{},
		&mockSTS{output: &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}},
		&mockOrg{err: errors.New("no org")},
		&mockIAM{output: &iam.ListAccountAliasesOutput{}},
	)

	identity, err := p.GetIdentity(context.Background(), testCredentials(t))
	require.NoError(t, err)
	assert.Equal(t, "123456789012", identity.Name)
}

func TestGetIdentity_MissingAccountID(t *testing.T) {
	p := NewFromAPIs(&mockCE{}, &mockSTS{output: &sts.GetCallerIdentityOutput{}}, &mockOrg{}, &mockIAM{})

	_, err := p.GetIdentity(context.Background(), testCredentials(t))
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderMalformed, pe.Kind)
}

func TestGetIdentity_CallerIdentityFails(t *testing.T) {
	p := NewFromAPIs(&mockCE{},
		&mockSTS{err: &smithy.GenericAPIError{Code: "AccessDenied"}},
		&mockOrg{}, &mockIAM{})

	_, err := p.GetIdentity(context.Background(), testCredentials(t))
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderAccessDenied, pe.Kind)
}

func TestGetCost(t *testing.T) {
	mock := &mockCE{output: costOutput(
		group("Amazon EC2", "60.0"),
		group("Amazon S3", "40.0"),
	)}
	p := NewFromAPIs(mock, &mockSTS{}, &mockOrg{}, &mockIAM{})

	window := domain.Window{
		Start:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndExclusive: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
	}
	cost, err := p.GetCost(context.Background(), testCredentials(t), window)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cost.Total)
	assert.Equal(t, 60.0, cost.Services["Amazon EC2"])
	assert.Equal(t, 40.0, cost.Services["Amazon S3"])
	assert.True(t, cost.Reconciles(0.001))

	require.NotNil(t, mock.gotInput)
	assert.Equal(t, "2026-03-01", aws.ToString(mock.gotInput.TimePeriod.Start))
	assert.Equal(t, "2026-03-16", aws.ToString(mock.gotInput.TimePeriod.End))
	assert.Equal(t, cetypes.GranularityMonthly, mock.gotInput.Granularity)
	assert.Equal(t, []string{"UnblendedCost"}, mock.gotInput.Metrics)
	require.Len(t, mock.gotInput.GroupBy, 1)
	assert.Equal(t, "SERVICE", aws.ToString(mock.gotInput.GroupBy[0].Key))
}

func TestGetCost_SumsAcrossPeriods(t *testing.T) {
	mock := &mockCE{output: &ce.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{
			{Groups: []cetypes.Group{group("Amazon EC2", "10.0")}},
			{Groups: []cetypes.Group{group("Amazon EC2", "15.0")}},
		},
	}}
	p := NewFromAPIs(mock, &mockSTS{}, &mockOrg{}, &mockIAM{})

	cost, err := p.GetCost(context.Background(), testCredentials(t), domain.Window{})
	require.NoError(t, err)
	assert.Equal(t, 25.0, cost.Total)
	assert.Equal(t, 25.0, cost.Services["Amazon EC2"])
}

func TestGetCost_EmptyServiceKey(t *testing.T) {
	mock := &mockCE{output: costOutput(cetypes.Group{
		Keys: []string{""},
		Metrics: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String("5.0")},
		},
	})}
	p := NewFromAPIs(mock, &mockSTS{}, &mockOrg{}, &mockIAM{})

	cost, err := p.GetCost(context.Background(), testCredentials(t), domain.Window{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, cost.Services["Unknown"])
}

func TestGetCost_MalformedAmount(t *testing.T) {
	mock := &mockCE{output: costOutput(group("Amazon EC2", "not-a-number"))}
	p := NewFromAPIs(mock, &mockSTS{}, &mockOrg{}, &mockIAM{})

	_, err := p.GetCost(context.Background(), testCredentials(t), domain.Window{})
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderMalformed, pe.Kind)
}

func TestGetCost_EmptyResponse(t *testing.T) {
	mock := &mockCE{output: &ce.GetCostAndUsageOutput{}}
	p := NewFromAPIs(mock, &mockSTS{}, &mockOrg{}, &mockIAM{})

	cost, err := p.GetCost(context.Background(), testCredentials(t), domain.Window{})
	require.NoError(t, err)
	assert.Zero(t, cost.Total)
	assert.Empty(t, cost.Services)
}

func TestGetCost_RejectsForeignCredentials(t *testing.T) {
	p := NewFromAPIs(&mockCE{}, &mockSTS{}, &mockOrg{}, &mockIAM{})

	_, err := p.GetCost(context.Background(), foreignCredentials{}, domain.Window{})
	assert.Error(t, err)
}

type foreignCredentials struct{}

func (foreignCredentials) ProviderID() string { return "other" }
func (foreignCredentials) Expired() bool      { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want domain.ProviderErrorKind
	}{
		{"Throttling", domain.ProviderThrottled},
		{"ThrottlingException", domain.ProviderThrottled},
		{"TooManyRequestsException", domain.ProviderThrottled},
		{"RequestLimitExceeded", domain.ProviderThrottled},
		{"LimitExceededException", domain.ProviderThrottled},
		{"AccessDenied", domain.ProviderAccessDenied},
		{"AccessDeniedException", domain.ProviderAccessDenied},
		{"UnrecognizedClientException", domain.ProviderAccessDenied},
		{"InvalidClientTokenId", domain.ProviderAccessDenied},
		{"ExpiredToken", domain.ProviderAccessDenied},
		{"ValidationException", domain.ProviderMalformed},
		{"DataUnavailableException", domain.ProviderMalformed},
		{"ServiceUnavailable", domain.ProviderUnavailable},
		{"InternalError", domain.ProviderUnavailable},
		{"SomethingNew", domain.ProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := classify("GetCostAndUsage", &smithy.GenericAPIError{Code: tt.code})
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, "GetCostAndUsage", err.Op)
		})
	}
}

func TestClassify_ContextErrors(t *testing.T) {
	err := classify("GetCostAndUsage", context.DeadlineExceeded)
	assert.Equal(t, domain.ProviderUnavailable, err.Kind)
	assert.True(t, domain.RetryableError(err))

	err = classify("GetCostAndUsage", context.Canceled)
	assert.Equal(t, domain.ProviderUnavailable, err.Kind)
}

func TestClassify_OpaqueError(t *testing.T) {
	err := classify("GetCostAndUsage", errors.New("connection reset"))
	assert.Equal(t, domain.ProviderUnavailable, err.Kind)
}
