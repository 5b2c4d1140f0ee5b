// Package services holds the decision pipeline that keeps the gold image
// fleet fresh: staleness filtering, duplicate-build guarding, and staggered
// build submission.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ops-tools/goldbaker/internal/devices"
	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
	"github.com/ops-tools/goldbaker/internal/resolve"
)

// DefaultStaggerInterval spaces build submissions to smooth load on the
// downstream builder. It is a heuristic, not a correctness mechanism.
const DefaultStaggerInterval = 300 * time.Second

// RefreshRequest parameterizes one pipeline run.
type RefreshRequest struct {
	// PathPrefix selects the definition subtree to consider.
	PathPrefix string
	// MinImageAgeDays gates out source images published too recently.
	MinImageAgeDays int
	// Platforms optionally restricts the run to these platforms (short or
	// display names). Empty means all.
	Platforms []string
	// Force skips the staleness filter and rebuilds every resolvable
	// definition.
	Force bool
}

// RefreshService composes the end-to-end decision pipeline. Every external
// call blocks until it returns; there is no parallelism across definitions.
type RefreshService struct {
	Logger      *slog.Logger
	Definitions repositories.DefinitionReader
	Resolver    *resolve.Resolver
	Staleness   *StalenessFilter
	Guard       *ConcurrencyGuard
	Emitter     *BuildEmitter

	// StaggerInterval defaults to DefaultStaggerInterval when zero.
	StaggerInterval time.Duration
	// DryRun walks the full decision pipeline but logs instead of
	// submitting.
	DryRun bool
}

// Run executes the pipeline and returns the final list of definitions
// considered for submission, for observability. Definitions missing required
// fields are dropped silently; unresolvable sources are skipped with a
// warning; a missing root device aborts the whole resolution phase.
func (s *RefreshService) Run(ctx context.Context, req RefreshRequest) ([]models.ResolvedDefinition, error) {
	logger := s.logger().With("path_prefix", req.PathPrefix)

	set, err := s.Definitions.Load(ctx, req.PathPrefix)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	logger.Info("loaded definitions", "count", set.Len())

	resolved, err := s.resolveAll(ctx, set, logger)
	if err != nil {
		return nil, err
	}

	if req.Force {
		logger.Info("force flag set; skipping staleness filter")
	} else {
		index, err := s.Staleness.BuildIndex(ctx, resolved)
		if err != nil {
			return nil, err
		}
		resolved = s.Staleness.Filter(resolved, index, req.MinImageAgeDays)
	}

	if len(req.Platforms) > 0 {
		resolved = restrictToPlatforms(resolved, req.Platforms)
	}
	logger.Info("definitions considered for rebuild", "count", len(resolved))

	for i, candidate := range resolved {
		ready, err := s.Guard.Ready(ctx, candidate.Platform)
		if err != nil {
			return nil, err
		}
		if !ready {
			logger.Warn("build not ready; skipping platform", "platform", candidate.Platform)
			continue
		}

		delaySeconds := i * int(s.staggerInterval().Seconds())
		if s.DryRun {
			logger.Info("dry run; would submit build",
				"platform", candidate.Platform,
				"source_image", candidate.Image.ID,
				"delay_seconds", delaySeconds,
			)
			continue
		}
		if err := s.Emitter.Submit(ctx, candidate, delaySeconds); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func (s *RefreshService) resolveAll(ctx context.Context, set *models.DefinitionSet, logger *slog.Logger) ([]models.ResolvedDefinition, error) {
	var resolved []models.ResolvedDefinition
	for _, name := range set.Names() {
		raw, _ := set.Get(name)

		def, err := models.DefinitionFromRaw(name, raw)
		if err != nil {
			logger.Warn("dropping definition with invalid parameters", "definition", name, "error", err)
			continue
		}
		if !def.Complete() {
			logger.Debug("dropping definition missing required fields", "definition", name)
			continue
		}

		image, err := s.Resolver.Resolve(ctx, def.Source)
		if err != nil {
			var unsupported *resolve.UnsupportedSchemeError
			if errors.Is(err, resolve.ErrMalformedSpec) || errors.As(err, &unsupported) {
				logger.Warn("cannot resolve source spec; skipping definition",
					"definition", name,
					"source", def.Source,
					"error", err,
				)
				continue
			}
			return nil, err
		}
		if image == nil || image.ID == "" {
			logger.Warn("no buildable source image; skipping definition",
				"definition", name,
				"source", def.Source,
			)
			continue
		}

		// A missing root device aborts resolution for the whole batch, not
		// just this definition. Known gap, intended policy unconfirmed.
		finalized, err := devices.Compose(def, *image)
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, models.ResolvedDefinition{
			BuildDefinition: def,
			Image:           *image,
			BlockDevices:    finalized,
		})
	}
	return resolved, nil
}

func restrictToPlatforms(resolved []models.ResolvedDefinition, allowlist []string) []models.ResolvedDefinition {
	var retained []models.ResolvedDefinition
	for _, candidate := range resolved {
		if slices.Contains(allowlist, candidate.Platform) || slices.Contains(allowlist, candidate.ShortName) {
			retained = append(retained, candidate)
		}
	}
	return retained
}

func (s *RefreshService) staggerInterval() time.Duration {
	if s.StaggerInterval > 0 {
		return s.StaggerInterval
	}
	return DefaultStaggerInterval
}

func (s *RefreshService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
