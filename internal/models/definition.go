package models

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Definition-tree field names recognized by DefinitionFromRaw.
const (
	FieldPlatform     = "platform"
	FieldSource       = "source"
	FieldBlockDevices = "block_devices"
	FieldUserData     = "user_data"
	FieldParameters   = "parameters"
	FieldDescription  = "description"
	FieldDocument     = "document"
)

// BuildDefinition is a single platform entry from the definition tree,
// normalized and ready for source resolution.
type BuildDefinition struct {
	ShortName string `json:"short_name"`
	Path      string `json:"path"`
	Platform  string `json:"platform"`
	Source    string `json:"source"`

	// BlockDeviceTemplate optionally overrides the device mappings of the
	// resolved source image. It is a JSON list of device entries and may
	// reference the resolved root device through a placeholder.
	BlockDeviceTemplate string `json:"block_device_template,omitempty"`

	UserData     string         `json:"user_data,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Description  string         `json:"description,omitempty"`
	DocumentName string         `json:"document_name,omitempty"`
}

// Complete reports whether the definition carries the fields required before
// resolution may proceed. Incomplete definitions are dropped, not erred.
func (d BuildDefinition) Complete() bool {
	return d.Platform != "" && d.Source != ""
}

// PlatformKey returns the last segment of the definition's origin path, or
// the platform name when the definition carries no path.
func (d BuildDefinition) PlatformKey() string {
	path := strings.Trim(d.Path, "/")
	if path == "" {
		return d.Platform
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// RawDefinition holds the unvalidated fields of one definition-tree entry.
type RawDefinition struct {
	Path   string
	Fields map[string]string
}

// DefinitionFromRaw validates and converts a raw tree entry. The parameters
// field, when present, must be a JSON object.
func DefinitionFromRaw(name string, raw *RawDefinition) (BuildDefinition, error) {
	def := BuildDefinition{
		ShortName:           name,
		Path:                raw.Path,
		Platform:            raw.Fields[FieldPlatform],
		Source:              raw.Fields[FieldSource],
		BlockDeviceTemplate: raw.Fields[FieldBlockDevices],
		UserData:            raw.Fields[FieldUserData],
		Description:         raw.Fields[FieldDescription],
		DocumentName:        raw.Fields[FieldDocument],
	}

	if encoded := strings.TrimSpace(raw.Fields[FieldParameters]); encoded != "" {
		parameters := map[string]any{}
		if err := json.Unmarshal([]byte(encoded), &parameters); err != nil {
			return BuildDefinition{}, fmt.Errorf("definition %q: parse parameters: %w", name, err)
		}
		def.Parameters = parameters
	}
	return def, nil
}

// DefinitionSet is an insertion-ordered collection of raw definitions keyed
// by short name. Keys are initialized exactly once so entries assembled from
// multiple tree leaves accumulate fields instead of overwriting each other.
type DefinitionSet struct {
	order  []string
	byName map[string]*RawDefinition
}

// NewDefinitionSet returns an empty definition set.
func NewDefinitionSet() *DefinitionSet {
	return &DefinitionSet{byName: map[string]*RawDefinition{}}
}

// Ensure returns the entry for name, creating it in first-seen order.
func (s *DefinitionSet) Ensure(name string) *RawDefinition {
	if raw, ok := s.byName[name]; ok {
		return raw
	}
	raw := &RawDefinition{Fields: map[string]string{}}
	s.byName[name] = raw
	s.order = append(s.order, name)
	return raw
}

// Get returns the entry for name, if present.
func (s *DefinitionSet) Get(name string) (*RawDefinition, bool) {
	raw, ok := s.byName[name]
	return raw, ok
}

// Names returns the short names in first-seen order.
func (s *DefinitionSet) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of entries.
func (s *DefinitionSet) Len() int {
	return len(s.order)
}
