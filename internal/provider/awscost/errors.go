package awscost

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// classify maps an AWS SDK failure to a provider error kind. Throttling
// and service faults are retryable; explicit denials are terminal for
// the account. Anything unrecognized is treated as transient.
func classify(op string, err error) *domain.ProviderError {
	kind := domain.ProviderUnavailable

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &domain.ProviderError{Kind: domain.ProviderUnavailable, Op: op, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "TooManyRequestsException",
			"RequestLimitExceeded", "LimitExceededException":
			kind = domain.ProviderThrottled
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation",
			"UnrecognizedClientException", "InvalidClientTokenId", "ExpiredToken":
			kind = domain.ProviderAccessDenied
		case "ValidationException", "DataUnavailableException":
			kind = domain.ProviderMalformed
		case "ServiceUnavailable", "ServiceUnavailableException",
			"InternalError", "InternalServerError", "RequestTimeout":
			kind = domain.ProviderUnavailable
		}
	}

	return &domain.ProviderError{Kind: kind, Op: op, Err: err}
}
