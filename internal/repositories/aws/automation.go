package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/google/uuid"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// Orchestrator implements repositories.Orchestrator against SSM Automation.
type Orchestrator struct {
	Client *ssm.Client
}

// ListExecutions returns summaries of executions whose document name starts
// with any of the prefixes and whose status is among the given ones,
// draining pagination completely.
func (o *Orchestrator) ListExecutions(ctx context.Context, documentPrefixes []string, statuses []models.ExecutionStatus) ([]repositories.ExecutionSummary, error) {
	if o.Client == nil {
		return nil, errors.New("orchestrator client is not configured")
	}

	statusValues := make([]string, 0, len(statuses))
	for _, status := range statuses {
		statusValues = append(statusValues, string(status))
	}

	input := &ssm.DescribeAutomationExecutionsInput{
		Filters: []ssmtypes.AutomationExecutionFilter{
			{Key: ssmtypes.AutomationExecutionFilterKeyDocumentNamePrefix, Values: documentPrefixes},
			{Key: ssmtypes.AutomationExecutionFilterKeyExecutionStatus, Values: statusValues},
		},
	}

	var summaries []repositories.ExecutionSummary
	paginator := ssm.NewDescribeAutomationExecutionsPaginator(o.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, metadata := range page.AutomationExecutionMetadataList {
			summaries = append(summaries, repositories.ExecutionSummary{
				ID:           awssdk.ToString(metadata.AutomationExecutionId),
				Status:       executionStatus(metadata.AutomationExecutionStatus),
				DocumentName: awssdk.ToString(metadata.DocumentName),
			})
		}
	}
	return summaries, nil
}

// GetExecution returns the full detail of one execution.
func (o *Orchestrator) GetExecution(ctx context.Context, id string) (*models.AutomationExecution, error) {
	if o.Client == nil {
		return nil, errors.New("orchestrator client is not configured")
	}

	out, err := o.Client.GetAutomationExecution(ctx, &ssm.GetAutomationExecutionInput{
		AutomationExecutionId: awssdk.String(id),
	})
	if err != nil {
		return nil, err
	}
	execution := out.AutomationExecution
	if execution == nil {
		return nil, nil
	}

	return &models.AutomationExecution{
		ID:              awssdk.ToString(execution.AutomationExecutionId),
		Status:          executionStatus(execution.AutomationExecutionStatus),
		DocumentName:    awssdk.ToString(execution.DocumentName),
		Parameters:      execution.Parameters,
		CurrentStepName: awssdk.ToString(execution.CurrentStepName),
	}, nil
}

// SendSignal delivers a signal to a running execution.
func (o *Orchestrator) SendSignal(ctx context.Context, id, signalType string, payload map[string][]string) error {
	if o.Client == nil {
		return errors.New("orchestrator client is not configured")
	}
	_, err := o.Client.SendAutomationSignal(ctx, &ssm.SendAutomationSignalInput{
		AutomationExecutionId: awssdk.String(id),
		SignalType:            ssmtypes.SignalType(signalType),
		Payload:               payload,
	})
	return err
}

// StartExecution starts the document with the given parameters and tags and
// returns the new execution id. A fresh client token makes accidental
// double-submission of the same invocation idempotent upstream.
func (o *Orchestrator) StartExecution(ctx context.Context, documentName string, parameters map[string][]string, tags map[string]string) (string, error) {
	if o.Client == nil {
		return "", errors.New("orchestrator client is not configured")
	}

	input := &ssm.StartAutomationExecutionInput{
		DocumentName: awssdk.String(documentName),
		Parameters:   parameters,
		ClientToken:  awssdk.String(uuid.NewString()),
		Tags:         ssmTags(tags),
	}
	out, err := o.Client.StartAutomationExecution(ctx, input)
	if err != nil {
		return "", err
	}
	if out.AutomationExecutionId == nil {
		return "", fmt.Errorf("orchestrator returned no execution id for document %q", documentName)
	}
	return *out.AutomationExecutionId, nil
}

func ssmTags(tags map[string]string) []ssmtypes.Tag {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	converted := make([]ssmtypes.Tag, 0, len(keys))
	for _, key := range keys {
		converted = append(converted, ssmtypes.Tag{
			Key:   awssdk.String(key),
			Value: awssdk.String(tags[key]),
		})
	}
	return converted
}

func executionStatus(status ssmtypes.AutomationExecutionStatus) models.ExecutionStatus {
	switch status {
	case ssmtypes.AutomationExecutionStatusPending:
		return models.ExecutionPending
	case ssmtypes.AutomationExecutionStatusInprogress:
		return models.ExecutionInProgress
	case ssmtypes.AutomationExecutionStatusWaiting:
		return models.ExecutionWaiting
	default:
		return models.ExecutionOther
	}
}
