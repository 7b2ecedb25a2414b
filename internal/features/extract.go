// File: internal/features/extract.go
package features

import (
	"math"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"github.com/xkilldash9x/smishguard/internal/urlextract"
)

// Thresholds and fixed lists the model was trained with.
const (
	longDomainThreshold = 15 // characters, exclusive
	repetitionRun       = 3  // identical consecutive characters
	specialChars        = "!#$%&*+=?^`{|}~"
)

var trustedTLDs = map[string]struct{}{
	"com": {}, "org": {}, "net": {}, "edu": {}, "gov": {}, "mil": {},
}

// suspiciousKeywords are counted once each when contained in the lowercased URL.
var suspiciousKeywords = []string{
	"login", "signin", "account", "update", "secure", "banking",
	"verify", "confirm", "password", "credit", "paypal", "amazon",
	"ebay", "apple", "google", "microsoft", "facebook", "netflix",
	"suspended", "locked", "unusual", "alert", "urgent",
}

// brands trigger a mismatch when present without "<brand>.com" or "<brand>.net".
var brands = []string{
	"paypal", "amazon", "google", "apple", "microsoft",
	"facebook", "netflix", "ebay", "bank", "secure",
}

// shortenedDomains is deliberately shorter than the extractor's list: it is
// the set the model saw during training.
var shortenedDomains = []string{"bit.ly", "t.co", "goo.gl", "tinyurl.com", "ow.ly"}

// Extract computes the feature vector for rawURL. It is total and
// deterministic: input that cannot be split yields the zero vector.
func Extract(rawURL string) Vector {
	var v Vector

	parts, err := urlextract.Split(rawURL)
	if err != nil || !validBracketedHost(parts.Host()) {
		return v
	}
	domain := parts.Authority
	lower := strings.ToLower(rawURL)

	// Structure
	v[URLLength] = float64(utf8.RuneCountInString(rawURL))
	v[DomainLength] = float64(utf8.RuneCountInString(domain))
	v[PathLength] = float64(utf8.RuneCountInString(parts.Path))
	v[HyphenCount] = float64(strings.Count(rawURL, "-"))
	v[UnderscoreCount] = float64(strings.Count(rawURL, "_"))
	v[SlashCount] = float64(strings.Count(rawURL, "/"))
	v[DotCount] = float64(strings.Count(rawURL, "."))
	v[HasAtSymbol] = flag(strings.Contains(rawURL, "@"))
	v[DigitCount] = float64(countFunc(rawURL, unicode.IsDigit))
	v[SpecialCharCount] = float64(countFunc(rawURL, func(r rune) bool {
		return strings.ContainsRune(specialChars, r)
	}))

	// Domain
	subdomains, suffix := splitRegistrable(tldHost(rawURL))
	v[IsIPAddress] = flag(isIPAddress(domain))
	v[SubdomainCount] = float64(subdomains)
	v[DomainHasDigits] = flag(countFunc(domain, unicode.IsDigit) > 0)
	v[IsTrustedTLD] = flag(isTrustedTLD(suffix))
	v[HasWWW] = flag(strings.HasPrefix(domain, "www."))
	v[DomainHyphenCount] = float64(strings.Count(domain, "-"))
	v[DomainEntropy] = Entropy(domain)
	v[StartsWithDigit] = flag(startsWithDigit(domain))
	v[DomainDotCount] = float64(strings.Count(domain, "."))
	v[IsLongDomain] = flag(utf8.RuneCountInString(domain) > longDomainThreshold)

	// Content
	v[IsHTTPS] = flag(strings.EqualFold(parts.Scheme, "https"))
	v[HasPort] = flag(strings.Contains(domain, ":") && !strings.HasPrefix(domain, "["))
	v[SuspiciousKeywordCount] = float64(countContained(lower, suspiciousKeywords))
	if parts.Query != "" {
		v[QueryParamCount] = float64(strings.Count(parts.Query, "&") + 1)
	}
	v[HasFragment] = flag(parts.Fragment != "")
	v[PathDepth] = float64(pathDepth(parts.Path))
	v[HasFileExtension] = flag(strings.Contains(lastSegment(parts.Path), "."))
	v[HasRepetitiveChars] = flag(hasRepetition(rawURL, repetitionRun))
	v[BrandMismatch] = flag(hasBrandMismatch(lower))
	v[IsShortenedURL] = flag(countContained(lower, shortenedDomains) > 0)

	return v
}

// Entropy is the Shannon entropy of s in bits per character, rounded to four
// decimals. The empty string has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	var order []rune
	total := 0
	for _, r := range s {
		if counts[r] == 0 {
			order = append(order, r)
		}
		counts[r]++
		total++
	}

	entropy := 0.0
	for _, r := range order {
		p := float64(counts[r]) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return math.Round(entropy*1e4) / 1e4
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func countFunc(s string, f func(rune) bool) int {
	n := 0
	for _, r := range s {
		if f(r) {
			n++
		}
	}
	return n
}

func countContained(s string, needles []string) int {
	n := 0
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			n++
		}
	}
	return n
}

// isIPAddress matches a dotted quad authority, or any unbracketed authority
// containing a colon. The second rule also fires on host:port, which is what
// the model was trained on.
func isIPAddress(domain string) bool {
	if isDottedQuad(domain) {
		return true
	}
	return strings.Contains(domain, ":") && !strings.HasPrefix(domain, "[")
}

func isDottedQuad(s string) bool {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if len(o) < 1 || len(o) > 3 {
			return false
		}
		for i := 0; i < len(o); i++ {
			if o[i] < '0' || o[i] > '9' {
				return false
			}
		}
	}
	return true
}

func startsWithDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return s != "" && unicode.IsDigit(r)
}

func isTrustedTLD(suffix string) bool {
	_, ok := trustedTLDs[suffix]
	return ok
}

func pathDepth(path string) int {
	depth := 0
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			depth++
		}
	}
	return depth
}

func lastSegment(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

// hasRepetition reports a run of n identical characters. Newlines never
// take part in a run.
func hasRepetition(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		switch {
		case r == '\n':
			run = 0
		case run > 0 && r == prev:
			run++
		default:
			run = 1
		}
		prev = r
		if run >= n {
			return true
		}
	}
	return false
}

func hasBrandMismatch(lower string) bool {
	for _, brand := range brands {
		if strings.Contains(lower, brand) &&
			!strings.Contains(lower, brand+".com") &&
			!strings.Contains(lower, brand+".net") {
			return true
		}
	}
	return false
}

// validBracketedHost rejects "[...]" hosts that are not IPv6 literals.
func validBracketedHost(host string) bool {
	if !strings.HasPrefix(host, "[") {
		return true
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if i := strings.IndexByte(inner, '%'); i >= 0 {
		inner = inner[:i]
	}
	ip := net.ParseIP(inner)
	return ip != nil && strings.Contains(inner, ":")
}

// tldHost extracts the lowercased hostname used for the public suffix split.
// Unlike the authority, it is found even when the URL has no "//".
func tldHost(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.Index(s, "//"); i >= 0 {
		if scheme := s[:i]; scheme == "" || strings.HasSuffix(scheme, ":") && isSchemeChars(scheme[:len(scheme)-1]) {
			s = s[i+2:]
		}
	}
	if end := strings.IndexAny(s, "/?#"); end >= 0 {
		s = s[:end]
	}
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		s = s[at+1:]
	}
	if strings.HasPrefix(s, "[") {
		return ""
	}
	if colon := strings.IndexByte(s, ':'); colon >= 0 {
		s = s[:colon]
	}
	return strings.TrimSuffix(strings.ToLower(s), ".")
}

func isSchemeChars(s string) bool {
	for _, r := range s {
		if !(r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '-' || r == '.')) {
			return false
		}
	}
	return s != ""
}

// splitRegistrable returns the number of subdomain labels and the ICANN
// public suffix of host. Private suffixes are ignored, and a TLD that is not
// on the list yields an empty suffix with the last label as the domain.
func splitRegistrable(host string) (subdomains int, suffix string) {
	if host == "" || net.ParseIP(host) != nil {
		return 0, ""
	}
	suffix = icannSuffix(host)

	labels := strings.Split(host, ".")
	suffixLabels := 0
	if suffix != "" {
		suffixLabels = strings.Count(suffix, ".") + 1
	}
	subdomains = len(labels) - suffixLabels - 1
	if subdomains < 0 {
		subdomains = 0
	}
	return subdomains, suffix
}

func icannSuffix(host string) string {
	suffix, icann := publicsuffix.PublicSuffix(host)
	for !icann {
		dot := strings.IndexByte(suffix, '.')
		if dot < 0 {
			// Only the implicit "*" rule matched.
			return ""
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[dot+1:])
	}
	return suffix
}
