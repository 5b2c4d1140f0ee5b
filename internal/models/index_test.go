package models

import (
	"testing"
)

func TestArtifactIndex(t *testing.T) {
	t.Parallel()

	index := NewArtifactIndex()
	index.Add("img-2", "P")
	index.Add("img-1", "P")
	index.Add("img-2", "Q")
	index.Add("", "ignored")

	if got := index.SourceIDs(); len(got) != 2 || got[0] != "img-2" || got[1] != "img-1" {
		t.Fatalf("SourceIDs() = %v, want [img-2 img-1]", got)
	}

	tests := []struct {
		sourceID string
		platform string
		want     bool
	}{
		{sourceID: "img-2", platform: "P", want: true},
		{sourceID: "img-2", platform: "Q", want: true},
		{sourceID: "img-1", platform: "P", want: true},
		{sourceID: "img-1", platform: "Q", want: false},
		{sourceID: "img-3", platform: "P", want: false},
	}
	for _, tt := range tests {
		if got := index.Satisfies(tt.sourceID, tt.platform); got != tt.want {
			t.Errorf("Satisfies(%q, %q) = %t, want %t", tt.sourceID, tt.platform, got, tt.want)
		}
	}
}
