package aws

import (
	"context"
	"errors"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// DefinitionReader loads the platform definition tree from SSM Parameter
// Store. Leaves are laid out as <prefix>/<short-name>/<field>.
type DefinitionReader struct {
	Client *ssm.Client
}

var _ repositories.DefinitionReader = (*DefinitionReader)(nil)

// Load reads every parameter under pathPrefix, draining pagination, and
// groups the leaves into per-definition field maps in first-seen order.
func (r *DefinitionReader) Load(ctx context.Context, pathPrefix string) (*models.DefinitionSet, error) {
	if r.Client == nil {
		return nil, errors.New("definition reader client is not configured")
	}

	prefix := strings.TrimRight(pathPrefix, "/")
	input := &ssm.GetParametersByPathInput{
		Path:      awssdk.String(prefix + "/"),
		Recursive: awssdk.Bool(true),
	}

	set := models.NewDefinitionSet()
	paginator := ssm.NewGetParametersByPathPaginator(r.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, parameter := range page.Parameters {
			name := awssdk.ToString(parameter.Name)
			relative := strings.TrimPrefix(name, prefix+"/")
			shortName, field, found := strings.Cut(relative, "/")
			if !found || shortName == "" || field == "" {
				continue
			}

			raw := set.Ensure(shortName)
			raw.Path = prefix + "/" + shortName
			raw.Fields[field] = awssdk.ToString(parameter.Value)
		}
	}
	return set, nil
}
