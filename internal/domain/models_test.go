package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AccountConfig
		wantErr bool
	}{
		{
			name:    "profile only",
			cfg:     AccountConfig{Ref: "prod", Profile: "prod"},
			wantErr: false,
		},
		{
			name: "static keys only",
			cfg: AccountConfig{
				Ref:        "credential-1",
				StaticKeys: &StaticKeys{AccessKeyID: "AKIA...", SecretAccessKey: "secret"},
			},
			wantErr: false,
		},
		{
			name: "assume role only",
			cfg: AccountConfig{
				Ref:        "child",
				AssumeRole: &AssumeRoleSpec{RoleARN: "arn:aws:iam::123456789012:role/Reader"},
			},
			wantErr: false,
		},
		{
			name:    "no strategy",
			cfg:     AccountConfig{Ref: "empty"},
			wantErr: true,
		},
		{
			name: "two strategies",
			cfg: AccountConfig{
				Ref:        "both",
				Profile:    "prod",
				StaticKeys: &StaticKeys{AccessKeyID: "AKIA...", SecretAccessKey: "secret"},
			},
			wantErr: true,
		},
		{
			name:    "missing ref",
			cfg:     AccountConfig{Profile: "prod"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPeriodCost_Reconciles(t *testing.T) {
	cost := PeriodCost{
		Total:    100.0,
		Services: map[string]float64{"EC2": 60.0, "S3": 40.004},
	}
	assert.True(t, cost.Reconciles(0.01))
	assert.False(t, cost.Reconciles(0.001))
}

func TestWindow_Days(t *testing.T) {
	w := Window{
		Start:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndExclusive: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 15, w.Days())
}

func TestServiceCost_JSONPair(t *testing.T) {
	data, err := json.Marshal(ServiceCost{Service: "Amazon EC2", Cost: 42.5})
	require.NoError(t, err)
	assert.JSONEq(t, `["Amazon EC2", 42.5]`, string(data))

	var sc ServiceCost
	require.NoError(t, json.Unmarshal([]byte(`["Amazon S3", 7.25]`), &sc))
	assert.Equal(t, "Amazon S3", sc.Service)
	assert.Equal(t, 7.25, sc.Cost)

	assert.Error(t, json.Unmarshal([]byte(`{"service": "x"}`), &sc))
	assert.Error(t, json.Unmarshal([]byte(`[42.5, "Amazon EC2"]`), &sc))
}

func TestReport_JSONShape(t *testing.T) {
	report := Report{
		MonthStart:        "2026-03-01",
		MonthEndExclusive: "2026-03-16",
		PrevStart:         "2026-02-01",
		PrevEndExclusive:  "2026-02-16",
		Summaries: []AccountSummary{
			{AccountID: "123456789012", AccountName: "prod", AccountRef: "prod", Total: 100},
			{AccountRef: "dev", Failed: true, ErrorKind: "access_denied", ErrorDetail: "denied"},
		},
		TotalAll:    100,
		PrevTotal:   80,
		Delta:       20,
		DeltaPct:    25,
		TopServices: []ServiceCost{{Service: "Amazon EC2", Cost: 60}},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 100.0, decoded["total_all"])
	assert.Equal(t, 25.0, decoded["delta_pct"])
	assert.Equal(t, "2026-03-01", decoded["month_start"])

	summaries := decoded["summaries"].([]any)
	require.Len(t, summaries, 2)
	failed := summaries[1].(map[string]any)
	assert.Equal(t, true, failed["failed"])
	assert.Equal(t, "access_denied", failed["error_kind"])
	// Healthy summaries omit the failure fields entirely.
	healthy := summaries[0].(map[string]any)
	_, hasFailed := healthy["failed"]
	assert.False(t, hasFailed)
}
