package aws

import (
	"context"
	"errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk/types"

	"github.com/ops-tools/goldbaker/internal/repositories"
)

// PlatformRegistry implements repositories.PlatformRegistry against Elastic
// Beanstalk's platform catalog.
type PlatformRegistry struct {
	Client *elasticbeanstalk.Client
}

// ListReadyVersions returns the ARNs of every Ready version of the platform
// family, draining pagination completely.
func (r *PlatformRegistry) ListReadyVersions(ctx context.Context, family string) ([]string, error) {
	if r.Client == nil {
		return nil, errors.New("platform registry client is not configured")
	}

	input := &elasticbeanstalk.ListPlatformVersionsInput{
		Filters: []ebtypes.PlatformFilter{
			{Type: awssdk.String("PlatformName"), Operator: awssdk.String("="), Values: []string{family}},
			{Type: awssdk.String("PlatformStatus"), Operator: awssdk.String("="), Values: []string{"Ready"}},
		},
	}

	var arns []string
	paginator := elasticbeanstalk.NewListPlatformVersionsPaginator(r.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, summary := range page.PlatformSummaryList {
			if summary.PlatformArn != nil {
				arns = append(arns, *summary.PlatformArn)
			}
		}
	}
	return arns, nil
}

// DescribeVersion returns the full description of one platform version, or
// nil when the catalog has no entry for the ARN.
func (r *PlatformRegistry) DescribeVersion(ctx context.Context, arn string) (*repositories.PlatformVersion, error) {
	if r.Client == nil {
		return nil, errors.New("platform registry client is not configured")
	}

	out, err := r.Client.DescribePlatformVersion(ctx, &elasticbeanstalk.DescribePlatformVersionInput{
		PlatformArn: awssdk.String(arn),
	})
	if err != nil {
		return nil, err
	}
	description := out.PlatformDescription
	if description == nil {
		return nil, nil
	}

	version := &repositories.PlatformVersion{
		ARN:           arn,
		Name:          awssdk.ToString(description.PlatformName),
		Version:       awssdk.ToString(description.PlatformVersion),
		SolutionStack: awssdk.ToString(description.SolutionStackName),
	}
	if description.DateCreated != nil {
		version.CreatedAt = *description.DateCreated
	}
	if description.DateUpdated != nil {
		version.UpdatedAt = *description.DateUpdated
	}
	for _, image := range description.CustomAmiList {
		version.CustomImages = append(version.CustomImages, repositories.CustomImage{
			ImageID:            awssdk.ToString(image.ImageId),
			VirtualizationType: awssdk.ToString(image.VirtualizationType),
		})
	}
	return version, nil
}
