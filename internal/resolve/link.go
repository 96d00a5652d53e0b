package resolve

import (
	"strings"
)

var linkHosts = []string{"t.me/", "telegram.me/", "telegram.dog/"}

// trimLink strips a scheme and a t.me-style host.
func trimLink(s string) string {
	lower := strings.ToLower(s)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			s, lower = s[len(scheme):], lower[len(scheme):]
		}
	}
	if strings.HasPrefix(lower, "www.") {
		s, lower = s[4:], lower[4:]
	}
	for _, h := range linkHosts {
		if strings.HasPrefix(lower, h) {
			return s[len(h):]
		}
	}
	return s
}

// Username extracts a handle from @name, name, t.me/name or a full link.
// It returns "" for strings that cannot be a handle.
func Username(s string) string {
	s = strings.TrimSpace(s)
	s = trimLink(s)
	s = strings.TrimPrefix(s, "@")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if s == "" || strings.HasPrefix(s, "+") {
		return ""
	}
	for _, c := range s {
		if !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return ""
		}
	}
	return s
}

// InviteHash extracts the invite token from "+XYZ", "t.me/+XYZ" or
// "t.me/joinchat/XYZ".
func InviteHash(s string) (string, bool) {
	s = strings.TrimSpace(s)
	path := trimLink(s)
	if rest, ok := strings.CutPrefix(path, "joinchat/"); ok {
		return token(rest)
	}
	if rest, ok := strings.CutPrefix(path, "+"); ok {
		return token(rest)
	}
	return "", false
}

func token(s string) (string, bool) {
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s, s != ""
}
