package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._\s-]`)

// SanitizeFilename cleans an uploaded filename for safe storage. It trims
// spaces and dots, removes parent directory references, strips characters
// outside a safe set, and bounds the length.
func SanitizeFilename(filename string) string {
	sanitized := strings.Trim(filename, " .")
	sanitized = strings.ReplaceAll(sanitized, "..", "")
	sanitized = unsafeChars.ReplaceAllString(sanitized, "")
	if len(sanitized) > 255 {
		sanitized = sanitized[:255]
	}
	return sanitized
}

// GenerateTaskID creates a unique ingestion task identifier.
func GenerateTaskID() string {
	return uuid.New().String()
}
