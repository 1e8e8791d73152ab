package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// urlPattern accepts http(s)/ftp(s) URLs whose host is a dotted DNS name,
// localhost or a dotted-quad IPv4 address, with an optional port and path.
var urlPattern = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// IsValidURL reports whether rawURL is an absolute URL the scraper accepts.
func IsValidURL(rawURL string) bool {
	return urlPattern.MatchString(rawURL)
}

// NormalizeURL collapses repeated slashes, defaults the scheme to http and
// drops a trailing slash. It is purely syntactic: "https://a.com///b//" and
// "https://a.com/b" normalize to the same string.
func NormalizeURL(rawURL string) string {
	var segments []string
	for _, segment := range strings.Split(rawURL, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	if !strings.Contains(segments[0], "http") {
		segments = append([]string{"http:"}, segments...)
	}
	segments[0] += "/"

	normalized := strings.Join(segments, "/")
	return strings.TrimSuffix(normalized, "/")
}

// ResolveReference turns an image reference found on a page into an
// absolute URL. Absolute references are returned unchanged, everything else
// is appended to the parent URL.
func ResolveReference(ref, parentURL string) string {
	ref = strings.TrimPrefix(ref, "/")
	if IsValidURL(ref) {
		return ref
	}
	return parentURL + "/" + ref
}
