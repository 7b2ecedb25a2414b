// File: internal/features/vector.go
package features

// Size is the number of features in a Vector.
const Size = 30

// Feature indexes. The order is the training schema and must never change.
const (
	URLLength = iota
	DomainLength
	PathLength
	HyphenCount
	UnderscoreCount
	SlashCount
	DotCount
	HasAtSymbol
	DigitCount
	SpecialCharCount
	IsIPAddress
	SubdomainCount
	DomainHasDigits
	IsTrustedTLD
	HasWWW
	DomainHyphenCount
	DomainEntropy
	StartsWithDigit
	DomainDotCount
	IsLongDomain
	IsHTTPS
	HasPort
	SuspiciousKeywordCount
	QueryParamCount
	HasFragment
	PathDepth
	HasFileExtension
	HasRepetitiveChars
	BrandMismatch
	IsShortenedURL
)

var names = [Size]string{
	"url_length", "domain_length", "path_length", "hyphen_count",
	"underscore_count", "slash_count", "dot_count", "has_at_symbol",
	"digit_count", "special_char_count", "is_ip_address", "subdomain_count",
	"domain_has_digits", "is_trusted_tld", "has_www", "domain_hyphen_count",
	"domain_entropy", "starts_with_digit", "domain_dot_count", "is_long_domain",
	"is_https", "has_port", "suspicious_keyword_count", "query_param_count",
	"has_fragment", "path_depth", "has_file_extension", "has_repetitive_chars",
	"brand_mismatch", "is_shortened_url",
}

var nameIndex = func() map[string]int {
	m := make(map[string]int, Size)
	for i, n := range names {
		m[n] = i
	}
	return m
}()

// Vector is the fixed schema numeric encoding of a URL. The zero value is the
// default vector returned on parse failure.
type Vector [Size]float64

// Names returns the feature names in vector order.
func Names() []string {
	out := make([]string, Size)
	copy(out, names[:])
	return out
}

// Index returns the position of a named feature.
func Index(name string) (int, bool) {
	i, ok := nameIndex[name]
	return i, ok
}

// Get returns the value of a named feature.
func (v Vector) Get(name string) (float64, bool) {
	i, ok := nameIndex[name]
	if !ok {
		return 0, false
	}
	return v[i], true
}

// Map returns the vector keyed by feature name, for display.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, Size)
	for i, n := range names {
		m[n] = v[i]
	}
	return m
}

// Project reorders the vector into the given name order. It fails on the
// first name the schema does not know.
func (v Vector) Project(order []string) ([]float64, error) {
	out := make([]float64, len(order))
	for i, name := range order {
		idx, ok := nameIndex[name]
		if !ok {
			return nil, &UnknownFeatureError{Name: name}
		}
		out[i] = v[idx]
	}
	return out, nil
}

// UnknownFeatureError is returned by Project for a name outside the schema.
type UnknownFeatureError struct {
	Name string
}

func (e *UnknownFeatureError) Error() string {
	return "unknown feature name " + `"` + e.Name + `"`
}
