package repositories

import (
	"context"
	"time"

	"github.com/ops-tools/goldbaker/internal/models"
)

// Filter narrows a registry query. Names follow the compute registry's
// filter vocabulary (for example "name", "image-id", "tag:Platform").
type Filter struct {
	Name   string
	Values []string
}

// ImageRegistry queries image metadata. Implementations return entries
// sorted by creation time, newest first, and fully drain pagination.
type ImageRegistry interface {
	DescribeImages(ctx context.Context, filters []Filter, owners []string) ([]models.ImageDescriptor, error)
}

// CustomImage is one bundled image reference of a platform version.
type CustomImage struct {
	ImageID            string
	VirtualizationType string
}

// PlatformVersion describes one version of a managed platform family.
type PlatformVersion struct {
	ARN           string
	Name          string
	Version       string
	SolutionStack string
	CustomImages  []CustomImage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PlatformRegistry enumerates managed platform versions. ListReadyVersions
// drains pagination completely before returning.
type PlatformRegistry interface {
	ListReadyVersions(ctx context.Context, family string) ([]string, error)
	DescribeVersion(ctx context.Context, arn string) (*PlatformVersion, error)
}

// ParameterStore reads values from an external key-value store.
type ParameterStore interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ExecutionSummary is the paginated listing form of a workflow execution.
type ExecutionSummary struct {
	ID           string
	Status       models.ExecutionStatus
	DocumentName string
}

// Orchestrator is the external workflow orchestrator. ListExecutions drains
// pagination completely; StartExecution is fire-and-forget and returns the
// new execution id.
type Orchestrator interface {
	ListExecutions(ctx context.Context, documentPrefixes []string, statuses []models.ExecutionStatus) ([]ExecutionSummary, error)
	GetExecution(ctx context.Context, id string) (*models.AutomationExecution, error)
	SendSignal(ctx context.Context, id, signalType string, payload map[string][]string) error
	StartExecution(ctx context.Context, documentName string, parameters map[string][]string, tags map[string]string) (string, error)
}

// InstanceRegistry queries and terminates build worker instances.
// DescribeInstances drains pagination completely.
type InstanceRegistry interface {
	DescribeInstances(ctx context.Context, filters []Filter) ([]models.WorkerInstance, error)
	TerminateInstances(ctx context.Context, ids []string) error
}

// DefinitionReader loads the raw platform definitions stored under a path
// prefix of the hierarchical configuration tree.
type DefinitionReader interface {
	Load(ctx context.Context, pathPrefix string) (*models.DefinitionSet, error)
}
