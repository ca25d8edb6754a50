package logger

import (
	"crypto/sha256"
	"fmt"
	"net/url"
)

// MaskURL keeps scheme and host of a URL and replaces path and query with a
// short hash, so signed dataset links never reach the logs.
func MaskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "url#" + shortHash(rawURL)
	}
	if parsed.Path == "" && parsed.RawQuery == "" {
		return parsed.Scheme + "://" + parsed.Host
	}
	return fmt.Sprintf("%s://%s/...#%s", parsed.Scheme, parsed.Host, shortHash(parsed.RequestURI()))
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum[:4])
}
