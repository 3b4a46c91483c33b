package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ComputeID derives a stable identifier for a chunk from its content and
// metadata. Content and metadata are digested separately and joined, so two
// chunks with identical text but different provenance stay distinguishable,
// while identical (content, metadata) pairs always collapse to the same ID.
// That ID is the upsert key: re-ingesting unchanged content overwrites in
// place rather than duplicating.
func ComputeID(content string, metadata map[string]string) string {
	contentHash := sha256.Sum256([]byte(content))
	metadataHash := sha256.Sum256([]byte(canonicalMetadata(metadata)))
	return hex.EncodeToString(contentHash[:]) + "-" + hex.EncodeToString(metadataHash[:])
}

// canonicalMetadata renders metadata as sorted key=value lines so the digest
// does not depend on map iteration order.
func canonicalMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}

	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+metadata[key])
	}
	return strings.Join(pairs, "\n")
}
