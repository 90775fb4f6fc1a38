package util

import (
	"fmt"
	"strings"
)

// Shorten normalizes whitespace in the string representation of v and trims
// it to at most maxLength runes, appending "..." when truncated. Used for
// human-readable previews in persisted logs.
func Shorten(v any, maxLength int) string {
	normalized := strings.Join(strings.Fields(fmt.Sprint(v)), " ")
	runes := []rune(normalized)
	if len(runes) <= maxLength {
		return normalized
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

// TextChunks splits text into consecutive chunks of at most chunkSize runes.
// Channel adapters use it to respect platform message size limits.
func TextChunks(text string, chunkSize int) []string {
	if chunkSize <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
