// Package devices finalizes block-device mappings for a build definition,
// either from the definition's override template or from the resolved source
// image's own mappings.
package devices

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
	json "github.com/goccy/go-json"

	"github.com/ops-tools/goldbaker/internal/models"
)

// RootDevicePlaceholder is the token a device-override template uses to
// reference the resolved image's root device name.
const RootDevicePlaceholder = "{RootDeviceName}"

// MissingRootDeviceError marks a definition whose override template needs a
// root-device substitution while the resolved image carries none.
type MissingRootDeviceError struct {
	Platform string
}

func (e *MissingRootDeviceError) Error() string {
	return fmt.Sprintf("definition %q requires a root-device substitution but the resolved image has no root device name", e.Platform)
}

// Compose produces the ordered list of serialized device entries for the
// definition. With an override template present, the resolved root device is
// substituted into it verbatim; otherwise the image's own mappings are
// copied with encryption forced on every entry backed by a volume.
func Compose(def models.BuildDefinition, image models.ImageDescriptor) ([]string, error) {
	if template := strings.TrimSpace(def.BlockDeviceTemplate); template != "" {
		return composeFromTemplate(def, template, image)
	}
	return composeFromImage(image)
}

func composeFromTemplate(def models.BuildDefinition, template string, image models.ImageDescriptor) ([]string, error) {
	if image.RootDeviceName == "" {
		return nil, &MissingRootDeviceError{Platform: def.Platform}
	}

	substituted := strings.ReplaceAll(template, RootDevicePlaceholder, image.RootDeviceName)

	var entries []models.DeviceMapping
	if err := json.Unmarshal([]byte(substituted), &entries); err != nil {
		return nil, fmt.Errorf("definition %q: parse device template: %w", def.Platform, err)
	}
	return serialize(entries)
}

func composeFromImage(image models.ImageDescriptor) ([]string, error) {
	entries := make([]models.DeviceMapping, 0, len(image.BlockDeviceMappings))
	for _, mapping := range image.BlockDeviceMappings {
		entry, err := cloneMapping(mapping)
		if err != nil {
			return nil, err
		}
		if _, backed := entry["Ebs"]; backed {
			if err := mergo.Merge(&entry, models.DeviceMapping{
				"Ebs": map[string]any{"Encrypted": true},
			}, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("force encryption on device entry: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return serialize(entries)
}

// cloneMapping deep-copies a device entry so the descriptor stays immutable.
func cloneMapping(mapping models.DeviceMapping) (models.DeviceMapping, error) {
	encoded, err := json.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("copy device entry: %w", err)
	}
	clone := models.DeviceMapping{}
	if err := json.Unmarshal(encoded, &clone); err != nil {
		return nil, fmt.Errorf("copy device entry: %w", err)
	}
	return clone, nil
}

func serialize(entries []models.DeviceMapping) ([]string, error) {
	serialized := make([]string, 0, len(entries))
	for _, entry := range entries {
		encoded, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("serialize device entry: %w", err)
		}
		serialized = append(serialized, string(encoded))
	}
	return serialized, nil
}
