package util

import (
	"encoding/json"
	"fmt"
)

// CanonicalJSON serializes v into a stable JSON form suitable for cache
// fingerprints. Stability relies on encoding/json's sorted map keys applied
// recursively; no further normalization (float formatting, unicode escaping)
// is attempted, so fingerprints are stable within a process family using the
// same encoder, which is all the in-memory cache needs.
func CanonicalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	return string(raw), nil
}

// NormalizeToMap converts an arbitrary JSON-serializable value into a plain
// map via a marshal/unmarshal round trip. Used to accept struct content where
// a structured payload is expected.
func NormalizeToMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize content: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("normalize content of type %T: %w", v, err)
	}
	return data, nil
}
