package models

// ArtifactIndex records which (source image, platform) combinations are
// already satisfied by a tagged gold artifact. Source ids keep first-seen
// order; the index is built fresh each run and read-only afterwards.
type ArtifactIndex struct {
	order     []string
	satisfied map[string]map[string]struct{}
}

// NewArtifactIndex returns an empty index.
func NewArtifactIndex() *ArtifactIndex {
	return &ArtifactIndex{satisfied: map[string]map[string]struct{}{}}
}

// Add marks platform as satisfied for the given source image id.
func (i *ArtifactIndex) Add(sourceID, platform string) {
	if sourceID == "" {
		return
	}
	platforms, ok := i.satisfied[sourceID]
	if !ok {
		platforms = map[string]struct{}{}
		i.satisfied[sourceID] = platforms
		i.order = append(i.order, sourceID)
	}
	if platform != "" {
		platforms[platform] = struct{}{}
	}
}

// Satisfies reports whether an artifact already covers the combination.
func (i *ArtifactIndex) Satisfies(sourceID, platform string) bool {
	platforms, ok := i.satisfied[sourceID]
	if !ok {
		return false
	}
	_, ok = platforms[platform]
	return ok
}

// SourceIDs returns the indexed source image ids in first-seen order.
func (i *ArtifactIndex) SourceIDs() []string {
	return append([]string(nil), i.order...)
}

// Len returns the number of indexed source image ids.
func (i *ArtifactIndex) Len() int {
	return len(i.order)
}
