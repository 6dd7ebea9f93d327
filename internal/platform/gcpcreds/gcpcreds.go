// Package gcpcreds builds GCP client options from environment variables,
// shared by every GCP-backed provider constructor (speech, vision,
// documentai, videointelligence). Grounded on the teacher's
// internal/clients/gcp/creds.go.
package gcpcreds

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// FromEnv reads GOOGLE_APPLICATION_CREDENTIALS_JSON (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (a file path) and returns the matching
// option.ClientOption, or no options at all when neither is set (the
// client then falls back to application-default credentials).
func FromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// Configured reports whether either credential environment variable is
// set, used by registerall to decide whether GCP-backed providers are
// worth constructing at all.
func Configured() bool {
	return strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")) != "" ||
		strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")) != ""
}
