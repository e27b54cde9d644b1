package text

import (
	"html"
	"net/url"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize unescapes HTML entities, applies NFC normalization, maps every
// Unicode separator to a plain space and collapses runs of whitespace.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := html.UnescapeString(raw)
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Z, r) {
			return ' '
		}
		return r
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// NormalizeURL percent-unescapes a URL and replaces spaces with '+'.
// Malformed escapes leave the input as is.
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.TrimSpace(raw)
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}
	return strings.ReplaceAll(s, " ", "+")
}

// ISOTime converts a unix epoch in seconds to an RFC 3339 UTC timestamp.
func ISOTime(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}
