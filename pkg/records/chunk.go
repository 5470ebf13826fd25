package records

import (
	"strings"
	"unicode/utf8"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
)

// SplitChunks splits content into ordered chunks of at most maxLen characters.
// Lengths are counted in runes so multi-byte text is never cut mid-character.
// Empty content yields no chunks.
func SplitChunks(content string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = constants.MaxChunkLength
	}
	if content == "" {
		return nil
	}
	if utf8.RuneCountInString(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	start, count := 0, 0
	for i := range content {
		if count == maxLen {
			chunks = append(chunks, content[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, content[start:])
}

// JoinChunks reassembles chunks in order.
func JoinChunks(chunks []string) string {
	return strings.Join(chunks, "")
}
