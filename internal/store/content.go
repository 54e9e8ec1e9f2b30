package store

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode"
)

// HashContent computes the deduplication key for a piece of content:
// the hex SHA-256 digest prefixed with the algorithm name.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("sha256:%x", sum)
}

// BuildPreview produces the cached preview for content: the first
// MaxPreviewLen characters (runes, so multi-byte text is never split) with
// control characters replaced by spaces.
func BuildPreview(content string) string {
	var b strings.Builder
	n := 0
	for _, r := range content {
		if n >= MaxPreviewLen {
			break
		}
		if unicode.IsControl(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
		n++
	}
	return b.String()
}
