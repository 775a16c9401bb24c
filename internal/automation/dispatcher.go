package automation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/cldeng/scp-exemption-trigger/internal/config"
	"github.com/cldeng/scp-exemption-trigger/internal/intent"
)

// Submission constants shared by both document paths.
const (
	documentVersion = "$DEFAULT"
	targetRegion    = "us-east-1"
	maxConcurrency  = "10"
	maxErrors       = "25%"
)

// Dispatcher starts SSM automation executions for the exemption and
// cleanup documents. It holds no state beyond the client handle and the
// immutable configuration.
type Dispatcher struct {
	client StartAutomationAPI
	cfg    *config.Config
}

func New(client StartAutomationAPI, cfg *config.Config) *Dispatcher {
	return &Dispatcher{client: client, cfg: cfg}
}

// StartExemption submits the tag/untag automation targeted at the
// request's account and returns the execution ID. A parameter-validation
// rejection is tolerated: it is logged and an empty ID returned so the
// rest of the batch can proceed. Any other failure is returned and aborts
// the batch, on the assumption it is systemic.
func (d *Dispatcher) StartExemption(ctx context.Context, req *intent.Request) (string, error) {
	out, err := d.client.StartAutomationExecution(ctx, &ssm.StartAutomationExecutionInput{
		DocumentName:    aws.String(d.cfg.ExemptionDocumentName),
		DocumentVersion: aws.String(documentVersion),
		Parameters:      req.Parameters,
		Mode:            types.ExecutionModeAuto,
		TargetLocations: []types.TargetLocation{
			{
				Accounts:                     []string{req.AccountID},
				Regions:                      []string{targetRegion},
				TargetLocationMaxConcurrency: aws.String(maxConcurrency),
				TargetLocationMaxErrors:      aws.String(maxErrors),
				ExecutionRoleName:            aws.String(d.cfg.ExecutionRoleName),
			},
		},
	})
	if err != nil {
		var invalid *types.InvalidAutomationExecutionParametersException
		if errors.As(err, &invalid) {
			slog.Error("exemption parameters rejected", "account_id", req.AccountID, "err", err)
			return "", nil
		}
		slog.Error("start exemption automation failed",
			"account_id", req.AccountID, "code", errorCode(err), "err", err)
		return "", err
	}
	return aws.ToString(out.AutomationExecutionId), nil
}
