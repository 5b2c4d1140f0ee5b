package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// Tag keys shared between the staleness index and build submission.
const (
	TagSourceImageID = "SourceImageId"
	TagPlatform      = "Platform"
	TagSource        = "Source"
	TagVersion       = "Version"
	TagGoldImage     = "GoldImage"
	TagSolutionStack = "SolutionStack"
)

// DefaultSchemaVersion is the current gold-artifact schema version; artifacts
// tagged with an older version never satisfy a candidate.
const DefaultSchemaVersion = "v3"

// StalenessFilter drops candidates already satisfied by a tagged gold
// artifact and candidates whose source image is too young to bake.
type StalenessFilter struct {
	Logger *slog.Logger
	Images repositories.ImageRegistry

	// NamePrefix narrows the artifact query to this system's own images.
	NamePrefix string
	// SchemaVersion defaults to DefaultSchemaVersion when empty.
	SchemaVersion string
	// Now is injectable for tests and defaults to time.Now.
	Now func() time.Time
}

// BuildIndex queries the registry for gold artifacts built from any of the
// candidates' source images and groups them by source image id. The index is
// rebuilt fresh each run.
func (f *StalenessFilter) BuildIndex(ctx context.Context, resolved []models.ResolvedDefinition) (*models.ArtifactIndex, error) {
	index := models.NewArtifactIndex()

	var sourceIDs []string
	seen := map[string]struct{}{}
	for _, candidate := range resolved {
		if candidate.Image.ID == "" {
			continue
		}
		if _, ok := seen[candidate.Image.ID]; ok {
			continue
		}
		seen[candidate.Image.ID] = struct{}{}
		sourceIDs = append(sourceIDs, candidate.Image.ID)
	}
	if len(sourceIDs) == 0 {
		return index, nil
	}

	artifacts, err := f.Images.DescribeImages(ctx, []repositories.Filter{
		{Name: "tag:" + TagSourceImageID, Values: sourceIDs},
		{Name: "name", Values: []string{f.NamePrefix + "*"}},
		{Name: "tag:" + TagVersion, Values: []string{f.schemaVersion()}},
		{Name: "tag:" + TagGoldImage, Values: []string{"true"}},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("query existing gold artifacts: %w", err)
	}

	for _, artifact := range artifacts {
		index.Add(artifact.Tags[TagSourceImageID], artifact.Tags[TagPlatform])
	}

	f.logger().Debug("built artifact index",
		"candidate_sources", len(sourceIDs),
		"indexed_sources", index.Len(),
	)
	return index, nil
}

// Filter retains candidates that no existing artifact satisfies and whose
// source image predates the minimum-age cutoff. A freshly published source
// image is left to stabilize before it is baked.
func (f *StalenessFilter) Filter(resolved []models.ResolvedDefinition, index *models.ArtifactIndex, minAgeDays int) []models.ResolvedDefinition {
	cutoff := f.now().AddDate(0, 0, -minAgeDays)

	var retained []models.ResolvedDefinition
	for _, candidate := range resolved {
		if index.Satisfies(candidate.Image.ID, candidate.Platform) {
			f.logger().Info("platform already satisfied by gold artifact",
				"platform", candidate.Platform,
				"source_image", candidate.Image.ID,
			)
			continue
		}
		if !candidate.Image.CreationDate.Before(cutoff) {
			f.logger().Info("source image too young to bake",
				"platform", candidate.Platform,
				"source_image", candidate.Image.ID,
				"creation_date", candidate.Image.CreationDate,
				"cutoff", cutoff,
			)
			continue
		}
		retained = append(retained, candidate)
	}
	return retained
}

func (f *StalenessFilter) schemaVersion() string {
	if f.SchemaVersion != "" {
		return f.SchemaVersion
	}
	return DefaultSchemaVersion
}

func (f *StalenessFilter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *StalenessFilter) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
