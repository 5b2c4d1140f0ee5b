package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// BuildEmitter composes and submits one build workflow invocation. The
// submission is fire-and-forget; nothing waits for completion.
type BuildEmitter struct {
	Logger       *slog.Logger
	Orchestrator repositories.Orchestrator

	// DocumentName is used when the definition names no workflow template.
	DocumentName string
}

// Submit starts the build workflow for the resolved definition with the
// given staggered delay. Free-form definition parameters are merged last and
// may override the fixed keys.
func (e *BuildEmitter) Submit(ctx context.Context, resolved models.ResolvedDefinition, delaySeconds int) error {
	parameters := map[string][]string{
		"sourceImageId":       {resolved.Image.ID},
		"imageName":           {resolved.Platform},
		"platform":            {resolved.Platform},
		"platformKey":         {resolved.PlatformKey()},
		"delayTime":           {fmt.Sprintf("PT%dS", delaySeconds)},
		"blockDeviceMappings": resolved.BlockDevices,
	}

	if resolved.UserData != "" {
		parameters["userData"] = []string{resolved.UserData}
	}

	description := resolved.Description
	if description == "" {
		description = resolved.Platform
	}
	parameters["imageDescription"] = []string{description}

	tags := map[string]string{
		TagPlatform:      resolved.Platform,
		TagSourceImageID: resolved.Image.ID,
		TagSource:        sanitizeTagValue(resolved.Source),
	}
	if resolved.Image.SolutionStack != "" {
		parameters["solutionStackName"] = []string{resolved.Image.SolutionStack}
		tags[TagSolutionStack] = resolved.Image.SolutionStack
	}

	for _, key := range sortedKeys(resolved.Parameters) {
		value, err := parameterValue(resolved.Parameters[key])
		if err != nil {
			return fmt.Errorf("encode parameter %q for %q: %w", key, resolved.Platform, err)
		}
		parameters[key] = value
	}

	document := resolved.DocumentName
	if document == "" {
		document = e.DocumentName
	}

	executionID, err := e.Orchestrator.StartExecution(ctx, document, parameters, tags)
	if err != nil {
		return fmt.Errorf("start build execution for %q: %w", resolved.Platform, err)
	}

	e.logger().Info("build execution submitted",
		"platform", resolved.Platform,
		"source_image", resolved.Image.ID,
		"document", document,
		"execution_id", executionID,
		"delay_seconds", delaySeconds,
	)
	return nil
}

// parameterValue wraps a scalar string as a single-element list and encodes
// anything structured as JSON first.
func parameterValue(value any) ([]string, error) {
	if text, ok := value.(string); ok {
		return []string{text}, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return []string{string(encoded)}, nil
}

// sanitizeTagValue replaces wildcard characters, which the registry rejects
// in tag values, with underscores.
func sanitizeTagValue(value string) string {
	return strings.NewReplacer("*", "_", "?", "_").Replace(value)
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (e *BuildEmitter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
