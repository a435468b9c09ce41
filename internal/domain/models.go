// Package domain holds the core data model for multi-account cost reports.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire format for period boundary dates.
const DateLayout = "2006-01-02"

// StaticKeys is a long-lived AWS access key pair.
type StaticKeys struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
}

// AssumeRoleSpec describes a role-assumption credential exchange.
type AssumeRoleSpec struct {
	RoleARN     string `json:"role_arn"`
	ExternalID  string `json:"external_id,omitempty"`
	BaseProfile string `json:"base_profile,omitempty"`
}

// AccountConfig identifies one account to report on. Exactly one of
// StaticKeys, Profile, or AssumeRole must be set.
type AccountConfig struct {
	Ref        string          `json:"account_ref"`
	StaticKeys *StaticKeys     `json:"static_keys,omitempty"`
	Profile    string          `json:"profile,omitempty"`
	AssumeRole *AssumeRoleSpec `json:"assume_role,omitempty"`
}

// Validate checks that the config names exactly one credential strategy.
func (c AccountConfig) Validate() error {
	if c.Ref == "" {
		return fmt.Errorf("domain: account config missing account_ref")
	}
	n := 0
	if c.StaticKeys != nil {
		n++
	}
	if c.Profile != "" {
		n++
	}
	if c.AssumeRole != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("domain: account %q must set exactly one credential strategy, got %d", c.Ref, n)
	}
	return nil
}

// AccountIdentity is the provider-assigned identity of one account.
type AccountIdentity struct {
	AccountID string `json:"account_id"`
	Name      string `json:"account_name"`
}

// PeriodCost is the cost of one account over one date range.
type PeriodCost struct {
	Total    float64            `json:"total"`
	Services map[string]float64 `json:"services"`
}

// Reconciles reports whether Total matches the sum of per-service costs
// within tolerance. Advisory only; providers round per service.
func (p PeriodCost) Reconciles(tolerance float64) bool {
	var sum float64
	for _, v := range p.Services {
		sum += v
	}
	return math.Abs(sum-p.Total) <= tolerance
}

// Window is a half-open date range [Start, EndExclusive).
type Window struct {
	Start        time.Time
	EndExclusive time.Time
}

// Days returns the length of the window in days.
func (w Window) Days() int {
	return int(w.EndExclusive.Sub(w.Start).Hours() / 24)
}

// AccountResult is the outcome of fetching one account: either a full
// identity plus current and previous period costs, or a contained error.
// Err non-nil means the account failed; the cost fields are then zero.
type AccountResult struct {
	Ref      string
	Identity AccountIdentity
	Current  PeriodCost
	Previous PeriodCost
	Err      error
}

// Failed reports whether the fetch for this account failed.
func (r AccountResult) Failed() bool {
	return r.Err != nil
}

// AccountSummary is the caller-facing per-account entry in a Report.
// Failed accounts carry a zero total and the failed flag so callers can
// render them without disguising the failure as a real zero-cost account.
type AccountSummary struct {
	AccountID   string             `json:"account_id"`
	AccountName string             `json:"account_name"`
	AccountRef  string             `json:"account_ref"`
	Total       float64            `json:"total"`
	Services    map[string]float64 `json:"services,omitempty"`
	Failed      bool               `json:"failed,omitempty"`
	ErrorKind   string             `json:"error_kind,omitempty"`
	ErrorDetail string             `json:"error,omitempty"`
}

// ServiceCost is one (service name, summed cost) pair. It marshals as a
// two-element JSON array, matching the report document contract.
type ServiceCost struct {
	Service string
	Cost    float64
}

// MarshalJSON encodes the pair as ["name", cost].
func (s ServiceCost) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.Service, s.Cost})
}

// UnmarshalJSON decodes ["name", cost].
func (s *ServiceCost) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &s.Service); err != nil {
		return fmt.Errorf("domain: service cost name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &s.Cost); err != nil {
		return fmt.Errorf("domain: service cost amount: %w", err)
	}
	return nil
}

// Report is the aggregate over all configured accounts for one request.
type Report struct {
	MonthStart        string `json:"month_start"`
	MonthEndExclusive string `json:"month_end_exclusive"`
	PrevStart         string `json:"prev_start"`
	PrevEndExclusive  string `json:"prev_end_exclusive"`

	Summaries []AccountSummary `json:"summaries"`

	TotalAll    float64       `json:"total_all"`
	PrevTotal   float64       `json:"prev_total"`
	Delta       float64       `json:"delta"`
	DeltaPct    float64       `json:"delta_pct"`
	TopServices []ServiceCost `json:"top_services"`
}
