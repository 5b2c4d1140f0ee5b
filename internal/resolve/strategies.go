package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// hardwareVirtualization is the only virtualization type eligible for gold
// image builds.
const hardwareVirtualization = "hvm"

// directStrategy treats the payload as an image identifier and fetches its
// metadata. An unknown identifier yields no match, not an error.
type directStrategy struct {
	images repositories.ImageRegistry
}

func (s *directStrategy) Resolve(ctx context.Context, payload string) (*models.ImageDescriptor, error) {
	id := strings.TrimSpace(payload)
	if id == "" {
		return nil, nil
	}

	images, err := s.images.DescribeImages(ctx, []repositories.Filter{
		{Name: "image-id", Values: []string{id}},
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	descriptor := images[0]
	return &descriptor, nil
}

// namePatternStrategy applies the payload as a name filter, restricted to
// the trusted-owner allowlist and the fixed platform constraints, and picks
// the most recently created match.
type namePatternStrategy struct {
	images repositories.ImageRegistry
	owners []string
}

func (s *namePatternStrategy) Resolve(ctx context.Context, payload string) (*models.ImageDescriptor, error) {
	images, err := s.images.DescribeImages(ctx, []repositories.Filter{
		{Name: "name", Values: []string{payload}},
		{Name: "architecture", Values: []string{"x86_64"}},
		{Name: "image-type", Values: []string{"machine"}},
		{Name: "root-device-type", Values: []string{"ebs"}},
		{Name: "virtualization-type", Values: []string{hardwareVirtualization}},
		{Name: "state", Values: []string{"available"}},
	}, s.owners)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	// Registry results are ordered newest first.
	descriptor := images[0]
	return &descriptor, nil
}

// platformVersionStrategy enumerates every Ready version of a managed
// platform family, collects one hardware-virtualized candidate image per
// version, and selects the most recently created across all of them.
type platformVersionStrategy struct {
	platforms repositories.PlatformRegistry
	images    repositories.ImageRegistry
}

func (s *platformVersionStrategy) Resolve(ctx context.Context, payload string) (*models.ImageDescriptor, error) {
	family := strings.TrimSpace(payload)
	if family == "" {
		return nil, nil
	}

	arns, err := s.platforms.ListReadyVersions(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("list versions of platform family %q: %w", family, err)
	}

	var newest *models.ImageDescriptor
	for _, arn := range arns {
		version, err := s.platforms.DescribeVersion(ctx, arn)
		if err != nil {
			return nil, fmt.Errorf("describe platform version %q: %w", arn, err)
		}
		if version == nil {
			continue
		}

		candidate := firstHardwareImage(version.CustomImages)
		if candidate == "" {
			continue
		}

		images, err := s.images.DescribeImages(ctx, []repositories.Filter{
			{Name: "image-id", Values: []string{candidate}},
		}, nil)
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			continue
		}

		descriptor := images[0]
		descriptor.SolutionStack = version.SolutionStack
		if newest == nil || descriptor.CreationDate.After(newest.CreationDate) {
			newest = &descriptor
		}
	}
	return newest, nil
}

func firstHardwareImage(images []repositories.CustomImage) string {
	for _, image := range images {
		if image.VirtualizationType == hardwareVirtualization {
			return image.ImageID
		}
	}
	return ""
}

// parameterStrategy reads an image identifier from the external parameter
// store and resolves it through the direct strategy.
type parameterStrategy struct {
	store  repositories.ParameterStore
	direct *directStrategy
}

func (s *parameterStrategy) Resolve(ctx context.Context, payload string) (*models.ImageDescriptor, error) {
	value, err := s.store.GetParameter(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("read parameter %q: %w", payload, err)
	}
	return s.direct.Resolve(ctx, value)
}
