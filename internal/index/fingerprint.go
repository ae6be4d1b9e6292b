package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint derives a stable identity for a chunk. Chunks carrying both
// "source" (or "file_path") and "raw_id" metadata are keyed by origin, so a
// row-like record re-ingested from the same source is recognized even if its
// text changed. Chunks with only a source are keyed by source plus content
// hash, so identical text under two different files stays distinct while a
// re-upload of the same file dedups. Chunks without origin metadata fall back
// to a bare content hash.
func Fingerprint(text string, metadata map[string]any) string {
	source := metadataString(metadata, "source")
	if source == "" {
		source = metadataString(metadata, "file_path")
	}
	rawID := metadataString(metadata, "raw_id")

	if source != "" && rawID != "" {
		return source + "::" + rawID
	}

	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])
	if source != "" {
		return source + "::" + digest
	}
	return digest
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	v, ok := metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
