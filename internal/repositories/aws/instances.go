package aws

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// InstanceRegistry implements repositories.InstanceRegistry against EC2.
type InstanceRegistry struct {
	Client *ec2.Client
}

// DescribeInstances returns every instance matching the filters.
func (r *InstanceRegistry) DescribeInstances(ctx context.Context, filters []repositories.Filter) ([]models.WorkerInstance, error) {
	if r.Client == nil {
		return nil, errors.New("instance registry client is not configured")
	}

	input := &ec2.DescribeInstancesInput{Filters: ec2Filters(filters)}

	var workers []models.WorkerInstance
	paginator := ec2.NewDescribeInstancesPaginator(r.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				workers = append(workers, workerInstance(instance))
			}
		}
	}
	return workers, nil
}

// TerminateInstances terminates the given instances. A nil id list is a
// no-op.
func (r *InstanceRegistry) TerminateInstances(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if r.Client == nil {
		return errors.New("instance registry client is not configured")
	}
	_, err := r.Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids})
	return err
}

func workerInstance(instance ec2types.Instance) models.WorkerInstance {
	worker := models.WorkerInstance{Tags: map[string]string{}}
	if instance.InstanceId != nil {
		worker.ID = *instance.InstanceId
	}
	if instance.State != nil {
		worker.State = models.InstanceState(instance.State.Name)
	}
	for _, tag := range instance.Tags {
		if tag.Key != nil && tag.Value != nil {
			worker.Tags[*tag.Key] = *tag.Value
		}
	}
	return worker
}
