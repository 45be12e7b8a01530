package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// Doc is a canonicalized document ready for content-addressed storage: its
// Digest is stable across re-encodings of semantically identical input.
type Doc struct {
	SchemaID       string            `json:"schema_id"`
	ContentType    string            `json:"content_type"`
	CanonicalBytes []byte            `json:"-"`
	Digest         string            `json:"digest"`
	Preview        string            `json:"preview"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Canonicalize converts a raw value into a canonical Doc.
// It detects the content type and applies the appropriate canonicalization logic.
func Canonicalize(schemaID string, raw interface{}) (*Doc, error) {
	var canonicalBytes []byte
	var contentType string
	var err error

	switch v := raw.(type) {
	case string:
		contentType = "text/plain"
		// Text is kept byte-for-byte after a UTF-8 validity check; no Unicode
		// normalization (NFC or otherwise) is applied.
		if !utf8.ValidString(v) {
			return nil, fmt.Errorf("invalid UTF-8 string")
		}
		canonicalBytes = []byte(v)
	case []byte:
		contentType = "application/octet-stream"
		canonicalBytes = v
	default:
		// Default to JSON for structured data
		contentType = "application/json"
		canonicalBytes, err = JCS(v)
		if err != nil {
			return nil, fmt.Errorf("failed to canonicalize as JSON: %w", err)
		}
	}

	digest := ComputeArtifactHash(canonicalBytes)
	preview := generatePreview(canonicalBytes)

	return &Doc{
		SchemaID:       schemaID,
		ContentType:    contentType,
		CanonicalBytes: canonicalBytes,
		Digest:         digest,
		Preview:        preview,
		Metadata:       make(map[string]string),
	}, nil
}

// ComputeArtifactHash returns the SHA-256 of the canonical bytes as a
// "sha256:"-prefixed hex string.
func ComputeArtifactHash(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// generatePreview creates a deterministic, truncated preview of the content.
func generatePreview(data []byte) string {
	const maxPreviewLen = 50
	if len(data) <= maxPreviewLen {
		return string(data)
	}
	// Simple truncation for now. In production, might want context-aware logic
	// (e.g. valid JSON prefix) but raw byte truncation is deterministic.
	return string(data[:maxPreviewLen]) + "..."
}
