// Package resolve turns source specs of the form scheme:payload into
// canonical image descriptors via a closed set of resolution strategies.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ops-tools/goldbaker/internal/logging"
	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// Scheme tokens understood by the resolver.
const (
	SchemeDirect      = "ami"
	SchemeNamePattern = "name"
	SchemePlatform    = "platform"
	SchemeParameter   = "parameter"
)

// Strategy resolves one scheme's payload into an image descriptor. A nil
// descriptor with a nil error means no matching image exists.
type Strategy interface {
	Resolve(ctx context.Context, payload string) (*models.ImageDescriptor, error)
}

// Config carries the collaborators and constraints the strategies need.
type Config struct {
	Logger     *slog.Logger
	Images     repositories.ImageRegistry
	Platforms  repositories.PlatformRegistry
	Parameters repositories.ParameterStore

	// Owners restricts name-pattern resolution to trusted image publishers.
	Owners []string
}

// Resolver dispatches source specs to strategies and memoizes results for
// the lifetime of one pipeline run. It is not safe for concurrent use and
// must not be reused across runs.
type Resolver struct {
	logger     *slog.Logger
	strategies map[string]Strategy
	cache      map[string]*models.ImageDescriptor
}

// New constructs a resolver with the full strategy set registered.
func New(cfg Config) *Resolver {
	direct := &directStrategy{images: cfg.Images}
	return &Resolver{
		logger: logging.Ensure(cfg.Logger),
		strategies: map[string]Strategy{
			SchemeDirect:      direct,
			SchemeNamePattern: &namePatternStrategy{images: cfg.Images, owners: cfg.Owners},
			SchemePlatform:    &platformVersionStrategy{platforms: cfg.Platforms, images: cfg.Images},
			SchemeParameter:   &parameterStrategy{store: cfg.Parameters, direct: direct},
		},
		cache: map[string]*models.ImageDescriptor{},
	}
}

// Resolve dispatches spec to the strategy registered for its scheme.
// Resolved descriptors, including "no match", are cached per distinct spec;
// transport failures are not.
func (r *Resolver) Resolve(ctx context.Context, spec string) (*models.ImageDescriptor, error) {
	scheme, payload, found := strings.Cut(spec, ":")
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrMalformedSpec, spec)
	}

	if descriptor, ok := r.cache[spec]; ok {
		return descriptor, nil
	}

	strategy, ok := r.strategies[scheme]
	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: scheme}
	}

	descriptor, err := strategy.Resolve(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", spec, err)
	}

	if descriptor == nil {
		r.logger.Warn("source spec matched no image", "spec", spec)
	} else {
		r.logger.Debug("source spec resolved",
			"spec", spec,
			"image_id", descriptor.ID,
			"creation_date", descriptor.CreationDate,
		)
	}

	r.cache[spec] = descriptor
	return descriptor, nil
}
