// Package configurations loads runtime settings and wires the collaborators
// into the refresh pipeline. All configuration is an explicit value passed
// into components; there is no ambient process state.
package configurations

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/ops-tools/goldbaker/internal/services"
)

// Settings is the explicit configuration value handed to every component.
type Settings struct {
	Region string `mapstructure:"region"`

	// PathPrefix selects the definition subtree.
	PathPrefix string `mapstructure:"path_prefix"`
	// DocumentName is the default build workflow template.
	DocumentName string `mapstructure:"document_name"`
	// ArtifactNamePrefix narrows gold-artifact queries to this system's
	// own images.
	ArtifactNamePrefix string `mapstructure:"artifact_name_prefix"`
	// SchemaVersion tags and matches the gold artifact schema.
	SchemaVersion string `mapstructure:"schema_version"`
	// OwnerAllowlist restricts name-pattern resolution to trusted image
	// publishers.
	OwnerAllowlist []string `mapstructure:"owner_allowlist"`

	MinImageAgeDays int `mapstructure:"min_image_age_days"`
	StaggerSeconds  int `mapstructure:"stagger_seconds"`

	PlatformTagKey  string `mapstructure:"platform_tag_key"`
	ExecutionTagKey string `mapstructure:"execution_tag_key"`
}

// Validate reports the first missing required setting.
func (s *Settings) Validate() error {
	if s.PathPrefix == "" {
		return errors.New("path_prefix is required")
	}
	if s.DocumentName == "" {
		return errors.New("document_name is required")
	}
	if s.ArtifactNamePrefix == "" {
		return errors.New("artifact_name_prefix is required")
	}
	return nil
}

// LoadSettings reads the settings file and environment overrides into an
// explicit Settings value. When path is empty, the default search locations
// are used and a missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("goldbaker")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/goldbaker")
	}
	v.SetEnvPrefix("GOLDBAKER")
	v.AutomaticEnv()

	v.SetDefault("schema_version", services.DefaultSchemaVersion)
	v.SetDefault("min_image_age_days", 3)
	v.SetDefault("stagger_seconds", int(services.DefaultStaggerInterval.Seconds()))
	v.SetDefault("platform_tag_key", services.DefaultPlatformTagKey)
	v.SetDefault("execution_tag_key", services.DefaultExecutionTagKey)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}
