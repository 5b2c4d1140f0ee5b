package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/ops-tools/goldbaker/internal/repositories"
)

// ParameterStore implements repositories.ParameterStore against SSM
// Parameter Store.
type ParameterStore struct {
	Client *ssm.Client
}

var _ repositories.ParameterStore = (*ParameterStore)(nil)

// GetParameter returns the stored value for name.
func (s *ParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	if s.Client == nil {
		return "", errors.New("parameter store client is not configured")
	}

	out, err := s.Client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: awssdk.String(name),
	})
	if err != nil {
		return "", err
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}
