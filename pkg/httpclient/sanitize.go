package httpclient

import (
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveParams are matched case-insensitively as substrings of query keys.
var sensitiveParams = []string{"token", "secret", "password", "key", "auth", "credential", "code"}

// sanitizeURL renders u for logs: credentials in the userinfo are dropped and
// sensitive query values are replaced.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if safe.User != nil {
		safe.User = url.User(redacted)
	}

	if safe.RawQuery != "" {
		q := safe.Query()
		changed := false
		for param := range q {
			if isSensitiveParam(param) {
				q.Set(param, redacted)
				changed = true
			}
		}
		if changed {
			safe.RawQuery = q.Encode()
		}
	}
	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, s := range sensitiveParams {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
