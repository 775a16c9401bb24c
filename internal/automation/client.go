package automation

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go"
)

// StartAutomationAPI is the slice of the SSM client this package uses.
// *ssm.Client satisfies it; tests substitute a stub.
type StartAutomationAPI interface {
	StartAutomationExecution(ctx context.Context, params *ssm.StartAutomationExecutionInput, optFns ...func(*ssm.Options)) (*ssm.StartAutomationExecutionOutput, error)
}

// errorCode returns the service error code for log lines, or "" for
// non-API errors.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
