package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// Default tag keys identifying build workers in the compute layer.
const (
	DefaultPlatformTagKey  = "Platform"
	DefaultExecutionTagKey = "AutomationExecutionId"
)

// ResumeSignal releases a paused approval gate in the orchestrator.
const ResumeSignal = "Resume"

// ConcurrencyGuard reconciles in-flight workflow executions and live worker
// instances for a platform before a new build may be submitted. It is a
// best-effort check-then-act gate, not a durable lock: two runs triggered
// close together can both observe no conflict and both submit.
type ConcurrencyGuard struct {
	Logger       *slog.Logger
	Orchestrator repositories.Orchestrator
	Instances    repositories.InstanceRegistry

	// DocumentName is the build workflow template; executions matching it or
	// its derived prefix are inspected.
	DocumentName string
	// PlatformTagKey and ExecutionTagKey default to the package defaults.
	PlatformTagKey  string
	ExecutionTagKey string
}

// Ready reports whether a new build for platform may be submitted. Waiting
// executions for the platform are resumed but do not block; Pending or
// InProgress ones do. When no conflict exists, orphaned workers tagged with
// the platform are terminated before the gate opens.
func (g *ConcurrencyGuard) Ready(ctx context.Context, platform string) (bool, error) {
	logger := g.logger().With("platform", platform)

	summaries, err := g.Orchestrator.ListExecutions(ctx, g.documentPrefixes(), models.LiveExecutionStatuses())
	if err != nil {
		return false, fmt.Errorf("list in-flight executions: %w", err)
	}

	for _, summary := range summaries {
		execution, err := g.Orchestrator.GetExecution(ctx, summary.ID)
		if err != nil {
			return false, fmt.Errorf("inspect execution %s: %w", summary.ID, err)
		}
		if execution == nil || !execution.ReferencesPlatform(platform) {
			continue
		}

		switch execution.Status {
		case models.ExecutionWaiting:
			logger.Info("resuming waiting execution",
				"execution_id", execution.ID,
				"step", execution.CurrentStepName,
			)
			payload := map[string][]string{"StepName": {execution.CurrentStepName}}
			if err := g.Orchestrator.SendSignal(ctx, execution.ID, ResumeSignal, payload); err != nil {
				return false, fmt.Errorf("resume execution %s: %w", execution.ID, err)
			}
		case models.ExecutionPending, models.ExecutionInProgress:
			logger.Warn("live build execution already exists", "execution_id", execution.ID)
			return false, nil
		}
	}

	if err := g.reclaimOrphanedWorkers(ctx, platform, logger); err != nil {
		return false, err
	}
	return true, nil
}

// reclaimOrphanedWorkers terminates workers left behind by prior incomplete
// runs: instances tagged with the platform that still carry an execution-id
// marker while no live execution for the platform exists.
func (g *ConcurrencyGuard) reclaimOrphanedWorkers(ctx context.Context, platform string, logger *slog.Logger) error {
	states := models.ReclaimableInstanceStates()
	stateValues := make([]string, 0, len(states))
	for _, state := range states {
		stateValues = append(stateValues, string(state))
	}

	instances, err := g.Instances.DescribeInstances(ctx, []repositories.Filter{
		{Name: "tag:" + g.platformTagKey(), Values: []string{platform}},
		{Name: "instance-state-name", Values: stateValues},
		{Name: "tag-key", Values: []string{g.executionTagKey()}},
	})
	if err != nil {
		return fmt.Errorf("query worker instances: %w", err)
	}
	if len(instances) == 0 {
		return nil
	}

	ids := make([]string, 0, len(instances))
	for _, instance := range instances {
		ids = append(ids, instance.ID)
	}
	logger.Warn("terminating orphaned build workers", "instance_ids", strings.Join(ids, ","))

	if err := g.Instances.TerminateInstances(ctx, ids); err != nil {
		return fmt.Errorf("terminate orphaned workers: %w", err)
	}
	return nil
}

// documentPrefixes returns the configured document name plus the derived
// prefix with its trailing identifier component stripped.
func (g *ConcurrencyGuard) documentPrefixes() []string {
	prefixes := []string{g.DocumentName}
	if idx := strings.LastIndex(g.DocumentName, "-"); idx > 0 {
		prefixes = append(prefixes, g.DocumentName[:idx])
	}
	return prefixes
}

func (g *ConcurrencyGuard) platformTagKey() string {
	if g.PlatformTagKey != "" {
		return g.PlatformTagKey
	}
	return DefaultPlatformTagKey
}

func (g *ConcurrencyGuard) executionTagKey() string {
	if g.ExecutionTagKey != "" {
		return g.ExecutionTagKey
	}
	return DefaultExecutionTagKey
}

func (g *ConcurrencyGuard) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
