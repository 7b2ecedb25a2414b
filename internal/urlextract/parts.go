package urlextract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURL marks a candidate that cannot be turned into an http(s) URL.
var ErrInvalidURL = errors.New("invalid url")

// Parts is a lossless split of a URL string into its components. Every field
// holds the text exactly as written, with no decoding or case folding.
type Parts struct {
	Scheme    string // as written, without "://"
	Authority string // userinfo@host:port
	Path      string // excludes ;params of the last segment
	Params    string
	Query     string
	Fragment  string
}

// Split breaks raw into its components. The authority is only recognised
// after a "//" marker, so "example.com/a" has an empty authority and the
// whole string as path. Unbalanced IPv6 brackets in the authority are an error.
func Split(raw string) (Parts, error) {
	var p Parts
	rest := raw

	if i := strings.IndexByte(rest, ':'); i > 0 && isSchemeName(rest[:i]) {
		p.Scheme = rest[:i]
		rest = rest[i+1:]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		p.Authority = rest[:end]
		rest = rest[end:]
		if strings.Contains(p.Authority, "[") != strings.Contains(p.Authority, "]") {
			return Parts{}, fmt.Errorf("%w: unbalanced brackets in %q", ErrInvalidURL, p.Authority)
		}
	}

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		p.Fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		p.Query = rest[i+1:]
		rest = rest[:i]
	}

	// Params only ever attach to the last path segment.
	lastSlash := strings.LastIndexByte(rest, '/')
	if i := strings.IndexByte(rest[lastSlash+1:], ';'); i >= 0 {
		cut := lastSlash + 1 + i
		p.Params = rest[cut+1:]
		rest = rest[:cut]
	}
	p.Path = rest
	return p, nil
}

// Host returns the authority without userinfo and port. Bracketed IPv6
// literals keep their brackets.
func (p Parts) Host() string {
	host := p.Authority
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	if strings.HasPrefix(host, "[") {
		if end := strings.IndexByte(host, ']'); end >= 0 {
			return host[:end+1]
		}
		return host
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// isSchemeName reports whether s is a valid RFC 3986 scheme.
func isSchemeName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}
