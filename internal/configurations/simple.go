package configurations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/ops-tools/goldbaker/internal/logging"
	"github.com/ops-tools/goldbaker/internal/repositories"
	awsrepositories "github.com/ops-tools/goldbaker/internal/repositories/aws"
	localrepositories "github.com/ops-tools/goldbaker/internal/repositories/local"
	"github.com/ops-tools/goldbaker/internal/resolve"
	"github.com/ops-tools/goldbaker/internal/services"
)

// Collaborators bundles the external systems the pipeline talks to.
type Collaborators struct {
	Definitions repositories.DefinitionReader
	Images      repositories.ImageRegistry
	Platforms   repositories.PlatformRegistry
	Parameters  repositories.ParameterStore
	Workflow    repositories.Orchestrator
	Instances   repositories.InstanceRegistry
}

// NewCollaborators constructs the cloud-backed collaborator set.
func NewCollaborators(ctx context.Context, settings *Settings) (*Collaborators, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(settings.Region))
	if err != nil {
		return nil, fmt.Errorf("load cloud configuration: %w", err)
	}

	ec2Client := ec2.NewFromConfig(cfg)
	ssmClient := ssm.NewFromConfig(cfg)

	return &Collaborators{
		Definitions: &awsrepositories.DefinitionReader{Client: ssmClient},
		Images:      &awsrepositories.ImageRegistry{Client: ec2Client},
		Platforms:   &awsrepositories.PlatformRegistry{Client: elasticbeanstalk.NewFromConfig(cfg)},
		Parameters:  &awsrepositories.ParameterStore{Client: ssmClient},
		Workflow:    &awsrepositories.Orchestrator{Client: ssmClient},
		Instances:   &awsrepositories.InstanceRegistry{Client: ec2Client},
	}, nil
}

// WithLocalDefinitions swaps the definition tree for a local YAML file,
// leaving the remaining collaborators cloud-backed.
func (c *Collaborators) WithLocalDefinitions(path string) *Collaborators {
	clone := *c
	clone.Definitions = &localrepositories.DefinitionReader{Path: path}
	return &clone
}

// NewRefreshService wires the collaborators into the decision pipeline.
func NewRefreshService(collaborators *Collaborators, settings *Settings, logger *slog.Logger, dryRun bool) (*services.RefreshService, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger = logging.Ensure(logger)

	resolver := resolve.New(resolve.Config{
		Logger:     logger.With("component", "resolver"),
		Images:     collaborators.Images,
		Platforms:  collaborators.Platforms,
		Parameters: collaborators.Parameters,
		Owners:     settings.OwnerAllowlist,
	})

	return &services.RefreshService{
		Logger:      logger.With("service", "refresh"),
		Definitions: collaborators.Definitions,
		Resolver:    resolver,
		Staleness: &services.StalenessFilter{
			Logger:        logger.With("component", "staleness"),
			Images:        collaborators.Images,
			NamePrefix:    settings.ArtifactNamePrefix,
			SchemaVersion: settings.SchemaVersion,
		},
		Guard: &services.ConcurrencyGuard{
			Logger:          logger.With("component", "guard"),
			Orchestrator:    collaborators.Workflow,
			Instances:       collaborators.Instances,
			DocumentName:    settings.DocumentName,
			PlatformTagKey:  settings.PlatformTagKey,
			ExecutionTagKey: settings.ExecutionTagKey,
		},
		Emitter: &services.BuildEmitter{
			Logger:       logger.With("component", "emitter"),
			Orchestrator: collaborators.Workflow,
			DocumentName: settings.DocumentName,
		},
		StaggerInterval: time.Duration(settings.StaggerSeconds) * time.Second,
		DryRun:          dryRun,
	}, nil
}

// NewResolver constructs a standalone resolver for inspection commands.
func NewResolver(collaborators *Collaborators, settings *Settings, logger *slog.Logger) *resolve.Resolver {
	return resolve.New(resolve.Config{
		Logger:     logging.Ensure(logger).With("component", "resolver"),
		Images:     collaborators.Images,
		Platforms:  collaborators.Platforms,
		Parameters: collaborators.Parameters,
		Owners:     settings.OwnerAllowlist,
	})
}
