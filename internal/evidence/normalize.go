package evidence

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// trackingParams are query parameters that never change page content.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"msclkid": true,
}

// NormalizeURL returns the identity key used to detect duplicate sources.
// Scheme and host are lowercased, "www." and default ports are dropped, the
// fragment and trailing slash are removed, tracking parameters are stripped
// and the remaining query is sorted. Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			lk := strings.ToLower(key)
			if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
				q.Del(key)
			}
		}
		// Encode sorts by key.
		u.RawQuery = q.Encode()
	}
	u.ForceQuery = false

	return u.String()
}

// NormalizeText applies Unicode NFC and collapses all whitespace runs to a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// truncateRunes cuts s to at most n characters without splitting a code point.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
