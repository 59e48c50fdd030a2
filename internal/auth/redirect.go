package auth

import "strings"

// SafeNext validates a post-login redirect target. It accepts same-origin
// relative paths and absolute URLs prefixed by the trusted frontend origin;
// everything else, including scheme-relative "//host" targets, is rejected
// with an empty string.
func SafeNext(next, frontendURL string) string {
	nxt := strings.TrimSpace(next)
	if nxt == "" {
		return ""
	}
	if strings.HasPrefix(nxt, "//") {
		return ""
	}
	if strings.HasPrefix(nxt, "/") {
		return nxt
	}

	fe := strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if fe != "" && strings.HasPrefix(nxt, fe) {
		return nxt
	}
	return ""
}
