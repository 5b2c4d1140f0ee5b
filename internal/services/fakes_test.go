package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// fakeImageRegistry serves two query shapes: image-id lookups from sources,
// and tag-filtered gold artifact queries from artifacts.
type fakeImageRegistry struct {
	sources   []models.ImageDescriptor
	artifacts []models.ImageDescriptor

	artifactQueries [][]repositories.Filter
}

func (f *fakeImageRegistry) DescribeImages(_ context.Context, filters []repositories.Filter, _ []string) ([]models.ImageDescriptor, error) {
	byID := filterValues(filters, "image-id")
	if len(byID) > 0 {
		var matched []models.ImageDescriptor
		for _, image := range f.sources {
			for _, id := range byID {
				if image.ID == id {
					matched = append(matched, image)
				}
			}
		}
		return matched, nil
	}

	bySourceTag := filterValues(filters, "tag:"+TagSourceImageID)
	if len(bySourceTag) > 0 {
		f.artifactQueries = append(f.artifactQueries, filters)
		var matched []models.ImageDescriptor
		for _, artifact := range f.artifacts {
			for _, id := range bySourceTag {
				if artifact.Tags[TagSourceImageID] == id &&
					artifact.Tags[TagVersion] == filterValues(filters, "tag:"+TagVersion)[0] &&
					artifact.Tags[TagGoldImage] == "true" {
					matched = append(matched, artifact)
				}
			}
		}
		return matched, nil
	}

	sorted := append([]models.ImageDescriptor(nil), f.sources...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreationDate.After(sorted[j].CreationDate)
	})
	return sorted, nil
}

func filterValues(filters []repositories.Filter, name string) []string {
	for _, filter := range filters {
		if filter.Name == name {
			return filter.Values
		}
	}
	return nil
}

type signal struct {
	executionID string
	signalType  string
	payload     map[string][]string
}

type submission struct {
	document   string
	parameters map[string][]string
	tags       map[string]string
}

type fakeOrchestrator struct {
	summaries  []repositories.ExecutionSummary
	executions map[string]*models.AutomationExecution

	listErr     error
	signals     []signal
	submissions []submission
}

func (f *fakeOrchestrator) ListExecutions(_ context.Context, _ []string, _ []models.ExecutionStatus) ([]repositories.ExecutionSummary, error) {
	return f.summaries, f.listErr
}

func (f *fakeOrchestrator) GetExecution(_ context.Context, id string) (*models.AutomationExecution, error) {
	execution, ok := f.executions[id]
	if !ok {
		return nil, fmt.Errorf("unknown execution %q", id)
	}
	return execution, nil
}

func (f *fakeOrchestrator) SendSignal(_ context.Context, id, signalType string, payload map[string][]string) error {
	f.signals = append(f.signals, signal{executionID: id, signalType: signalType, payload: payload})
	return nil
}

func (f *fakeOrchestrator) StartExecution(_ context.Context, documentName string, parameters map[string][]string, tags map[string]string) (string, error) {
	f.submissions = append(f.submissions, submission{
		document:   documentName,
		parameters: parameters,
		tags:       tags,
	})
	return fmt.Sprintf("exec-%d", len(f.submissions)), nil
}

type fakeInstanceRegistry struct {
	instances []models.WorkerInstance

	queries    [][]repositories.Filter
	terminated [][]string
}

func (f *fakeInstanceRegistry) DescribeInstances(_ context.Context, filters []repositories.Filter) ([]models.WorkerInstance, error) {
	f.queries = append(f.queries, filters)

	platforms := filterValues(filters, "tag:"+DefaultPlatformTagKey)
	var matched []models.WorkerInstance
	for _, instance := range f.instances {
		for _, platform := range platforms {
			if instance.Tags[DefaultPlatformTagKey] == platform {
				matched = append(matched, instance)
			}
		}
	}
	return matched, nil
}

func (f *fakeInstanceRegistry) TerminateInstances(_ context.Context, ids []string) error {
	f.terminated = append(f.terminated, ids)
	return nil
}

type fakeDefinitionReader struct {
	set *models.DefinitionSet
}

func (f *fakeDefinitionReader) Load(_ context.Context, _ string) (*models.DefinitionSet, error) {
	return f.set, nil
}

func definitionSet(entries ...map[string]string) *models.DefinitionSet {
	set := models.NewDefinitionSet()
	for _, fields := range entries {
		name := fields["_name"]
		raw := set.Ensure(name)
		raw.Path = "/platforms/base/" + name
		for key, value := range fields {
			if !strings.HasPrefix(key, "_") {
				raw.Fields[key] = value
			}
		}
	}
	return set
}
