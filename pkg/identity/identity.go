// Package identity validates and normalizes the identifiers that move
// through the deal pipeline: UUIDs for startups and statuses, and
// human-readable slugs that stand in for status UUIDs.
package identity

import (
	"regexp"
	"strings"
)

// Canonical 8-4-4-4-12 UUID shape, case-insensitive.
var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// IsValidUUID reports whether id matches the canonical hyphenated UUID
// format. Empty strings never match.
func IsValidUUID(id string) bool {
	return uuidPattern.MatchString(id)
}

// SanitizeID trims surrounding whitespace. A value that is empty after
// trimming is treated as absent, never as "".
func SanitizeID(id string) (string, bool) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", false
	}

	return trimmed, true
}

// Slugify lowercases the name and collapses every run of non-alphanumeric
// characters to a single hyphen. "Due Diligence" and "due--diligence"
// normalize identically.
func Slugify(name string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")

	return strings.Trim(slug, "-")
}
