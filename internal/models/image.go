package models

import (
	"time"
)

// DeviceMapping is one block-device entry in registry form. The structure is
// registry-defined, so it stays a free-form object.
type DeviceMapping map[string]any

// ImageDescriptor is the canonical description of a source image produced by
// the source resolver. It is immutable once produced; a nil *ImageDescriptor
// means a resolution strategy found no match.
type ImageDescriptor struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name,omitempty"`
	CreationDate        time.Time         `json:"creation_date"`
	RootDeviceName      string            `json:"root_device_name,omitempty"`
	Architecture        string            `json:"architecture,omitempty"`
	State               string            `json:"state,omitempty"`
	BlockDeviceMappings []DeviceMapping   `json:"block_device_mappings,omitempty"`
	Tags                map[string]string `json:"tags,omitempty"`

	// SolutionStack is set only by platform-version resolution.
	SolutionStack string `json:"solution_stack,omitempty"`
}

// ResolvedDefinition pairs a build definition with its resolved source image
// and the finalized, serialized block-device entries. It lives for the
// duration of one pipeline run and is never persisted.
type ResolvedDefinition struct {
	BuildDefinition
	Image        ImageDescriptor `json:"image"`
	BlockDevices []string        `json:"block_devices,omitempty"`
}
