package urlextract

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultScheme = "http"

// Normalize converts a raw candidate into its canonical form: the scheme is
// defaulted to http and lowercased, the host is lowercased with any leading
// "www." labels removed, and userinfo and everything after the authority are
// kept byte for byte. Normalize(Normalize(u)) == Normalize(u) for every u it accepts.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}

	scheme, rest, err := splitScheme(s)
	if err != nil {
		return "", err
	}

	parts, err := Split(scheme + "://" + rest)
	if err != nil {
		return "", err
	}

	authority := canonicalAuthority(parts.Authority)
	parts.Authority = authority
	if parts.Host() == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, raw)
	}
	// Only the authority is held to net/url's rules. Paths with malformed
	// escapes ("/sale-50%") still open in a browser and must reach the stages.
	if _, err := url.Parse(scheme + "://" + authority); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	normalized := scheme + "://" + authority + rest[authorityLen(rest):]
	return normalized, nil
}

// canonicalAuthority lowercases the host and port and strips "www." labels
// from the host. Userinfo is left as written.
func canonicalAuthority(authority string) string {
	userinfo, hostport := "", authority
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		userinfo, hostport = authority[:i+1], authority[i+1:]
	}
	hostport = strings.ToLower(hostport)
	for strings.HasPrefix(hostport, "www.") {
		hostport = hostport[len("www."):]
	}
	return userinfo + hostport
}

// splitScheme returns the lowercased http(s) scheme and the text after "://".
// Input without a scheme gets the default one. Any other scheme is rejected.
func splitScheme(s string) (scheme, rest string, err error) {
	lower := strings.ToLower(s)
	for _, candidate := range []string{"https", "http"} {
		if strings.HasPrefix(lower, candidate+"://") {
			return candidate, s[len(candidate)+3:], nil
		}
	}

	if i := strings.IndexByte(s, ':'); i > 0 && isSchemeName(s[:i]) {
		after := s[i+1:]
		// "host:port" is not a scheme; "ftp://" and "mailto:" are.
		if strings.HasPrefix(after, "//") || !strings.Contains(s[:i], ".") && !startsWithDigit(after) {
			return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, s[:i])
		}
	}
	return defaultScheme, s, nil
}

// authorityLen is the length of the authority at the start of rest.
func authorityLen(rest string) int {
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		return end
	}
	return len(rest)
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
