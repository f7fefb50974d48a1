package log

import (
	"net/url"
	"strings"
)

// sensitiveQueryParams are query parameter names whose values are masked in
// logged URLs. Matching is case-insensitive; names containing one of
// sensitiveKeywords are masked too.
var sensitiveQueryParams = map[string]bool{
	"key":              true,
	"apikey":           true,
	"api_key":          true,
	"access_token":     true,
	"sig":              true,
	"signature":        true,
	"x-amz-signature":  true,
	"code":             true,
	"session":          true,
	"sid":              true,
	"password":         true,
	"pass":             true,
	"pwd":              true,
	"client_secret":    true,
	"x-goog-signature": true,
}

// sanitizeURL masks credentials in an absolute URL: the password of the
// userinfo and the values of sensitive query parameters. It reports false
// when s is not a URL or holds nothing to mask.
func sanitizeURL(s string) (string, bool) {
	if !strings.Contains(s, "://") {
		return s, false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s, false
	}

	changed := false
	if _, ok := u.User.Password(); ok {
		changed = true
	}
	if u.RawQuery != "" {
		if q, masked := maskQuery(u.RawQuery); masked {
			u.RawQuery = q
			changed = true
		}
	}
	if !changed {
		return s, false
	}
	// Redacted replaces the userinfo password; RawQuery is written verbatim.
	return u.Redacted(), true
}

// maskQuery rewrites a raw query string, keeping parameter order and the
// original encoding of everything it does not mask.
func maskQuery(raw string) (string, bool) {
	parts := strings.Split(raw, "&")
	masked := false
	for i, part := range parts {
		name, _, hasValue := strings.Cut(part, "=")
		if !hasValue {
			continue
		}
		decoded, err := url.QueryUnescape(name)
		if err != nil {
			decoded = name
		}
		lower := strings.ToLower(decoded)
		if sensitiveQueryParams[lower] || sensitiveKeys[lower] || containsSensitiveKeyword(lower) {
			parts[i] = name + "=" + MaskValue
			masked = true
		}
	}
	return strings.Join(parts, "&"), masked
}
