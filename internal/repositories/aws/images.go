// Package aws adapts the AWS SDK clients to the pipeline's collaborator
// interfaces. Every listing call drains pagination completely before
// returning.
package aws

import (
	"context"
	"errors"
	"sort"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// ImageRegistry implements repositories.ImageRegistry against EC2.
type ImageRegistry struct {
	Client *ec2.Client
}

// DescribeImages returns matching images sorted by creation time, newest
// first.
func (r *ImageRegistry) DescribeImages(ctx context.Context, filters []repositories.Filter, owners []string) ([]models.ImageDescriptor, error) {
	if r.Client == nil {
		return nil, errors.New("image registry client is not configured")
	}

	input := &ec2.DescribeImagesInput{Filters: ec2Filters(filters)}
	if len(owners) > 0 {
		input.Owners = owners
	}

	var descriptors []models.ImageDescriptor
	paginator := ec2.NewDescribeImagesPaginator(r.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, image := range page.Images {
			descriptors = append(descriptors, imageDescriptor(image))
		}
	}

	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].CreationDate.After(descriptors[j].CreationDate)
	})
	return descriptors, nil
}

func ec2Filters(filters []repositories.Filter) []ec2types.Filter {
	converted := make([]ec2types.Filter, 0, len(filters))
	for _, filter := range filters {
		converted = append(converted, ec2types.Filter{
			Name:   awssdk.String(filter.Name),
			Values: filter.Values,
		})
	}
	return converted
}

func imageDescriptor(image ec2types.Image) models.ImageDescriptor {
	descriptor := models.ImageDescriptor{
		ID:             awssdk.ToString(image.ImageId),
		Name:           awssdk.ToString(image.Name),
		RootDeviceName: awssdk.ToString(image.RootDeviceName),
		Architecture:   string(image.Architecture),
		State:          string(image.State),
		Tags:           tagMap(image.Tags),
	}
	if date := awssdk.ToString(image.CreationDate); date != "" {
		if parsed, err := time.Parse(time.RFC3339, date); err == nil {
			descriptor.CreationDate = parsed
		}
	}
	for _, mapping := range image.BlockDeviceMappings {
		descriptor.BlockDeviceMappings = append(descriptor.BlockDeviceMappings, deviceMapping(mapping))
	}
	return descriptor
}

func deviceMapping(mapping ec2types.BlockDeviceMapping) models.DeviceMapping {
	entry := models.DeviceMapping{}
	if mapping.DeviceName != nil {
		entry["DeviceName"] = *mapping.DeviceName
	}
	if mapping.VirtualName != nil {
		entry["VirtualName"] = *mapping.VirtualName
	}
	if mapping.NoDevice != nil {
		entry["NoDevice"] = *mapping.NoDevice
	}
	if mapping.Ebs != nil {
		ebs := map[string]any{}
		if mapping.Ebs.DeleteOnTermination != nil {
			ebs["DeleteOnTermination"] = *mapping.Ebs.DeleteOnTermination
		}
		if mapping.Ebs.Encrypted != nil {
			ebs["Encrypted"] = *mapping.Ebs.Encrypted
		}
		if mapping.Ebs.Iops != nil {
			ebs["Iops"] = int(*mapping.Ebs.Iops)
		}
		if mapping.Ebs.SnapshotId != nil {
			ebs["SnapshotId"] = *mapping.Ebs.SnapshotId
		}
		if mapping.Ebs.VolumeSize != nil {
			ebs["VolumeSize"] = int(*mapping.Ebs.VolumeSize)
		}
		if mapping.Ebs.Throughput != nil {
			ebs["Throughput"] = int(*mapping.Ebs.Throughput)
		}
		if mapping.Ebs.VolumeType != "" {
			ebs["VolumeType"] = string(mapping.Ebs.VolumeType)
		}
		entry["Ebs"] = ebs
	}
	return entry
}

func tagMap(tags []ec2types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	converted := make(map[string]string, len(tags))
	for _, tag := range tags {
		converted[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
	}
	return converted
}
