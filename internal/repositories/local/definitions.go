// Package local provides file-backed collaborator implementations, used for
// dry runs and tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ops-tools/goldbaker/internal/models"
	"github.com/ops-tools/goldbaker/internal/repositories"
)

// DefinitionReader loads platform definitions from a single YAML document
// mapping short names to field maps. Document order is preserved.
type DefinitionReader struct {
	Path string
}

var _ repositories.DefinitionReader = (*DefinitionReader)(nil)

// Load parses the YAML file. Scalar field values are kept verbatim;
// structured values (such as a parameters block) are re-encoded as JSON so
// the fields match the parameter-tree representation.
func (r *DefinitionReader) Load(_ context.Context, pathPrefix string) (*models.DefinitionSet, error) {
	if r.Path == "" {
		return nil, errors.New("definition file path is not configured")
	}

	payload, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}

	var document yaml.Node
	if err := yaml.Unmarshal(payload, &document); err != nil {
		return nil, fmt.Errorf("parse definition file %s: %w", r.Path, err)
	}

	set := models.NewDefinitionSet()
	if len(document.Content) == 0 {
		return set, nil
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("definition file %s: top level must be a mapping", r.Path)
	}

	prefix := strings.TrimRight(pathPrefix, "/")
	for i := 0; i+1 < len(root.Content); i += 2 {
		nameNode, bodyNode := root.Content[i], root.Content[i+1]
		if bodyNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("definition %q: body must be a mapping", nameNode.Value)
		}

		raw := set.Ensure(nameNode.Value)
		raw.Path = prefix + "/" + nameNode.Value
		if err := decodeFields(bodyNode, raw.Fields); err != nil {
			return nil, fmt.Errorf("definition %q: %w", nameNode.Value, err)
		}
	}
	return set, nil
}

func decodeFields(body *yaml.Node, fields map[string]string) error {
	for i := 0; i+1 < len(body.Content); i += 2 {
		keyNode, valueNode := body.Content[i], body.Content[i+1]

		if valueNode.Kind == yaml.ScalarNode {
			fields[keyNode.Value] = valueNode.Value
			continue
		}

		var structured any
		if err := valueNode.Decode(&structured); err != nil {
			return fmt.Errorf("decode field %q: %w", keyNode.Value, err)
		}
		encoded, err := json.Marshal(structured)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", keyNode.Value, err)
		}
		fields[keyNode.Value] = string(encoded)
	}
	return nil
}
