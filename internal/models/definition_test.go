package models

import (
	"testing"
)

func TestDefinitionFromRaw(t *testing.T) {
	t.Parallel()

	raw := &RawDefinition{
		Path: "/platforms/base/amazon-linux-2",
		Fields: map[string]string{
			FieldPlatform:    "AmazonLinux2",
			FieldSource:      "name:amzn2-ami-hvm-*",
			FieldUserData:    "#!/bin/bash",
			FieldDescription: "base image",
			FieldDocument:    "GoldImageBake-linux",
			FieldParameters:  `{"retention": "30", "volumes": [{"size": 100}]}`,
		},
	}

	def, err := DefinitionFromRaw("amazon-linux-2", raw)
	if err != nil {
		t.Fatalf("DefinitionFromRaw() error = %v", err)
	}
	if def.ShortName != "amazon-linux-2" {
		t.Errorf("ShortName = %q, want %q", def.ShortName, "amazon-linux-2")
	}
	if def.Platform != "AmazonLinux2" || def.Source != "name:amzn2-ami-hvm-*" {
		t.Errorf("unexpected platform/source: %q %q", def.Platform, def.Source)
	}
	if !def.Complete() {
		t.Error("Complete() = false, want true")
	}
	if got := def.Parameters["retention"]; got != "30" {
		t.Errorf("Parameters[retention] = %v, want %q", got, "30")
	}
	if _, ok := def.Parameters["volumes"].([]any); !ok {
		t.Errorf("Parameters[volumes] = %T, want []any", def.Parameters["volumes"])
	}
}

func TestDefinitionFromRawInvalidParameters(t *testing.T) {
	t.Parallel()

	raw := &RawDefinition{Fields: map[string]string{
		FieldPlatform:   "P",
		FieldSource:     "ami:ami-1",
		FieldParameters: "{not json",
	}}

	if _, err := DefinitionFromRaw("p", raw); err == nil {
		t.Fatal("DefinitionFromRaw() error = nil, want non-nil")
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		platform string
		source   string
		want     bool
	}{
		{name: "both present", platform: "P", source: "ami:ami-1", want: true},
		{name: "missing source", platform: "P", want: false},
		{name: "missing platform", source: "ami:ami-1", want: false},
		{name: "missing both", want: false},
	}

	for _, tt := range tests {
		def := BuildDefinition{Platform: tt.platform, Source: tt.source}
		if got := def.Complete(); got != tt.want {
			t.Errorf("%s: Complete() = %t, want %t", tt.name, got, tt.want)
		}
	}
}

func TestPlatformKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  BuildDefinition
		want string
	}{
		{
			name: "last path segment",
			def:  BuildDefinition{Path: "/platforms/base/amazon-linux-2", Platform: "AmazonLinux2"},
			want: "amazon-linux-2",
		},
		{
			name: "trailing slash",
			def:  BuildDefinition{Path: "/platforms/base/ubuntu/", Platform: "Ubuntu"},
			want: "ubuntu",
		},
		{
			name: "no path falls back to platform",
			def:  BuildDefinition{Platform: "Windows2022"},
			want: "Windows2022",
		},
	}

	for _, tt := range tests {
		if got := tt.def.PlatformKey(); got != tt.want {
			t.Errorf("%s: PlatformKey() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDefinitionSetKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	set := NewDefinitionSet()
	set.Ensure("b").Fields["platform"] = "B"
	set.Ensure("a").Fields["platform"] = "A"
	set.Ensure("b").Fields["source"] = "ami:ami-1"

	names := set.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("Names() = %v, want [b a]", names)
	}

	raw, ok := set.Get("b")
	if !ok {
		t.Fatal("Get(b) missing")
	}
	if raw.Fields["platform"] != "B" || raw.Fields["source"] != "ami:ami-1" {
		t.Fatalf("entry b did not accumulate fields: %v", raw.Fields)
	}
	if set.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", set.Len())
	}
}

func TestAutomationExecutionReferencesPlatform(t *testing.T) {
	t.Parallel()

	execution := AutomationExecution{Parameters: map[string][]string{
		"platform":  {"AmazonLinux2"},
		"imageName": {"AmazonLinux2"},
	}}

	if !execution.ReferencesPlatform("AmazonLinux2") {
		t.Error("ReferencesPlatform(AmazonLinux2) = false, want true")
	}
	if execution.ReferencesPlatform("Ubuntu") {
		t.Error("ReferencesPlatform(Ubuntu) = true, want false")
	}
	if execution.ReferencesPlatform("") {
		t.Error("ReferencesPlatform(\"\") = true, want false")
	}
}
