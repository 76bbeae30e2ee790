package ingest

import (
	"net/url"
	"strings"
)

// Hosts accepted for ingest submissions: the canonical platform hosts plus
// the short-link host used by share sheets.
var acceptedHosts = map[string]struct{}{
	"tiktok.com":     {},
	"www.tiktok.com": {},
	"m.tiktok.com":   {},
	"vm.tiktok.com":  {},
}

// ValidIngestURL reports whether the candidate points at a recognized video
// host. Malformed or unrecognized input returns false; it never errors,
// since the result only gates the submit action.
func ValidIngestURL(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	_, ok := acceptedHosts[strings.ToLower(parsed.Hostname())]
	return ok
}
