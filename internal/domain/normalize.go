package domain

import "strings"

// NormalizeQuery canonicalizes query text for cache key derivation:
// lowercase, surrounding whitespace trimmed. Parsing passes that need the
// original case (state-code extraction) keep the raw text.
func NormalizeQuery(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}
