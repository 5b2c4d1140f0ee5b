package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ops-tools/goldbaker/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resolvedCandidate(platform, sourceID string, created time.Time) models.ResolvedDefinition {
	return models.ResolvedDefinition{
		BuildDefinition: models.BuildDefinition{
			ShortName: platform,
			Platform:  platform,
			Source:    "ami:" + sourceID,
		},
		Image: models.ImageDescriptor{ID: sourceID, CreationDate: created},
	}
}

func TestBuildIndexGroupsArtifactsBySource(t *testing.T) {
	t.Parallel()

	registry := &fakeImageRegistry{artifacts: []models.ImageDescriptor{
		{ID: "gold-1", Tags: map[string]string{
			TagSourceImageID: "img-1", TagPlatform: "P", TagVersion: "v3", TagGoldImage: "true",
		}},
		{ID: "gold-2", Tags: map[string]string{
			TagSourceImageID: "img-1", TagPlatform: "Q", TagVersion: "v3", TagGoldImage: "true",
		}},
	}}
	filter := &StalenessFilter{Logger: discardLogger(), Images: registry, NamePrefix: "gold-base"}

	now := time.Now()
	index, err := filter.BuildIndex(context.Background(), []models.ResolvedDefinition{
		resolvedCandidate("P", "img-1", now),
		resolvedCandidate("R", "img-2", now),
	})
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	if !index.Satisfies("img-1", "P") || !index.Satisfies("img-1", "Q") {
		t.Error("index missing satisfied platforms for img-1")
	}
	if index.Satisfies("img-2", "R") {
		t.Error("img-2 should not be satisfied")
	}

	if len(registry.artifactQueries) != 1 {
		t.Fatalf("artifact queries = %d, want 1", len(registry.artifactQueries))
	}
	query := registry.artifactQueries[0]
	if got := filterValues(query, "name"); len(got) != 1 || got[0] != "gold-base*" {
		t.Errorf("name filter = %v, want [gold-base*]", got)
	}
	if got := filterValues(query, "tag:"+TagVersion); len(got) != 1 || got[0] != DefaultSchemaVersion {
		t.Errorf("version filter = %v, want [%s]", got, DefaultSchemaVersion)
	}
	if got := filterValues(query, "tag:"+TagGoldImage); len(got) != 1 || got[0] != "true" {
		t.Errorf("gold-marker filter = %v, want [true]", got)
	}
}

func TestBuildIndexNoCandidates(t *testing.T) {
	t.Parallel()

	registry := &fakeImageRegistry{}
	filter := &StalenessFilter{Logger: discardLogger(), Images: registry, NamePrefix: "gold-base"}

	index, err := filter.BuildIndex(context.Background(), nil)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	if index.Len() != 0 {
		t.Fatalf("index length = %d, want 0", index.Len())
	}
	if len(registry.artifactQueries) != 0 {
		t.Fatal("registry queried for an empty candidate list")
	}
}

func TestFilterDropsSatisfiedCombinations(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	filter := &StalenessFilter{Logger: discardLogger(), Now: func() time.Time { return now }}

	index := models.NewArtifactIndex()
	index.Add("img-1", "P")

	old := now.AddDate(0, 0, -10)
	retained := filter.Filter([]models.ResolvedDefinition{
		resolvedCandidate("P", "img-1", old),
		resolvedCandidate("Q", "img-1", old),
	}, index, 3)

	if len(retained) != 1 || retained[0].Platform != "Q" {
		t.Fatalf("Filter() retained %v, want only Q", platforms(retained))
	}
}

func TestFilterAppliesAgeGate(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	filter := &StalenessFilter{Logger: discardLogger(), Now: func() time.Time { return now }}

	retained := filter.Filter([]models.ResolvedDefinition{
		resolvedCandidate("Fresh", "img-1", now.AddDate(0, 0, -1)),
		resolvedCandidate("Aged", "img-2", now.AddDate(0, 0, -5)),
	}, models.NewArtifactIndex(), 3)

	if len(retained) != 1 || retained[0].Platform != "Aged" {
		t.Fatalf("Filter() retained %v, want only Aged", platforms(retained))
	}
}

func platforms(resolved []models.ResolvedDefinition) []string {
	var names []string
	for _, candidate := range resolved {
		names = append(names, candidate.Platform)
	}
	return names
}
