package awscost

import (
	"fmt"
	"strconv"

	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// transformCost folds CE GetCostAndUsage output into a PeriodCost.
// Same-named services across result periods are summed. An unparseable
// amount is malformed provider data, not a zero.
func transformCost(out *ce.GetCostAndUsageOutput) (domain.PeriodCost, error) {
	cost := domain.PeriodCost{Services: make(map[string]float64)}

	for _, result := range out.ResultsByTime {
		for _, group := range result.Groups {
			service := "Unknown"
			if len(group.Keys) > 0 && group.Keys[0] != "" {
				service = group.Keys[0]
			}

			metricValue, ok := group.Metrics["UnblendedCost"]
			if !ok || metricValue.Amount == nil {
				continue
			}
			amount, err := strconv.ParseFloat(*metricValue.Amount, 64)
			if err != nil {
				return domain.PeriodCost{}, &domain.ProviderError{
					Kind: domain.ProviderMalformed,
					Op:   "GetCostAndUsage",
					Err:  fmt.Errorf("unparseable amount %q for service %s: %w", *metricValue.Amount, service, err),
				}
			}

			cost.Services[service] += amount
			cost.Total += amount
		}
	}

	return cost, nil
}
