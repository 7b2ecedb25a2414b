package urlextract

import "strings"

// shortenerDomains are the hosts treated as link shorteners.
var shortenerDomains = map[string]struct{}{
	"bit.ly":      {},
	"t.co":        {},
	"goo.gl":      {},
	"ow.ly":       {},
	"tinyurl.com": {},
	"short.ly":    {},
	"is.gd":       {},
	"buff.ly":     {},
	"adf.ly":      {},
}

// IsShortener reports whether the URL's authority, lowercased and without a
// leading "www.", is a known shortener.
func IsShortener(rawURL string) bool {
	domain := strings.ToLower(ExtractDomain(rawURL))
	domain = strings.TrimPrefix(domain, "www.")
	_, ok := shortenerDomains[domain]
	return ok
}

// ExtractDomain returns the authority of rawURL as written, or "" when it has
// none or cannot be split.
func ExtractDomain(rawURL string) string {
	parts, err := Split(rawURL)
	if err != nil {
		return ""
	}
	return parts.Authority
}
