// File: internal/urlextract/extractor.go
package urlextract

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/api/schemas"
)

// urlChars is the character class shared by the scheme and www patterns.
const urlChars = "[^\\s<>\"{}|\\\\^`\\[\\]]"

// patternClass pairs a compiled expression with the kind it reports.
type patternClass struct {
	kind schemas.PatternKind
	re   *regexp.Regexp
}

// patternClasses are matched independently over the whole text and unioned.
// Order only decides which kind is recorded when several classes produce the
// same substring, so the more specific classes come first.
var patternClasses = []patternClass{
	{schemas.PatternFullScheme, regexp.MustCompile(`(?i)https?://` + urlChars + `+`)},
	{schemas.PatternWWWPrefixed, regexp.MustCompile(`(?i)www\.` + urlChars + `+`)},
	{schemas.PatternShortener, regexp.MustCompile(`(?i)\b(?:bit\.ly|t\.co|goo\.gl|ow\.ly|tinyurl\.com)/[a-z0-9]+`)},
	{schemas.PatternBareDomain, regexp.MustCompile(`(?i)\b[a-z0-9][-a-z0-9]*\.[a-z]{2,}(?:/` + urlChars + `*)?`)},
}

// trailingPunctuation is sentence punctuation that the greedy classes swallow
// at the end of a link ("see http://x.com/a."). A closing parenthesis is
// handled by trimTrailing.
const trailingPunctuation = ".,;:!?"

// Extractor finds and normalizes URLs in free text. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an Extractor. A nil logger is replaced by a no-op one.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.Named("urlextract")}
}

// Extract scans text and returns the maximal candidates together with the
// sorted, deduplicated set of normalized URLs. It never fails: candidates
// that cannot be normalized are dropped.
func (e *Extractor) Extract(text string) schemas.ExtractionResult {
	result := schemas.ExtractionResult{
		Candidates: []schemas.CandidateURL{},
		URLs:       []string{},
	}
	if strings.TrimSpace(text) == "" {
		return result
	}

	kinds := make(map[string]schemas.PatternKind)
	for _, class := range patternClasses {
		for _, match := range class.re.FindAllString(text, -1) {
			match = trimTrailing(match)
			if match == "" {
				continue
			}
			if _, seen := kinds[match]; !seen {
				kinds[match] = class.kind
			}
		}
	}

	raws := make([]string, 0, len(kinds))
	for raw := range kinds {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	seen := make(map[string]struct{})
	for _, raw := range filterSubsets(raws) {
		result.Candidates = append(result.Candidates, schemas.CandidateURL{Raw: raw, Kind: kinds[raw]})

		normalized, err := Normalize(raw)
		if err != nil {
			e.logger.Debug("Dropping unparsable candidate", zap.String("candidate", raw), zap.Error(err))
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		result.URLs = append(result.URLs, normalized)
	}
	sort.Strings(result.URLs)
	return result
}

// filterSubsets drops every candidate that is a strict substring of another.
// The input holds distinct strings, so any containment is strict.
func filterSubsets(candidates []string) []string {
	kept := make([]string, 0, len(candidates))
	for i, candidate := range candidates {
		contained := false
		for j, other := range candidates {
			if i != j && strings.Contains(other, candidate) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// trimTrailing strips sentence punctuation from the end of a match. A final
// ")" is dropped only while it has no "(" partner inside the match, so
// "(see x.com/a)" loses it and "x.org/wiki/Foo_(bar)" keeps it.
func trimTrailing(match string) string {
	for match != "" {
		last := match[len(match)-1]
		switch {
		case strings.IndexByte(trailingPunctuation, last) >= 0:
			match = match[:len(match)-1]
		case last == ')' && strings.Count(match, "(") < strings.Count(match, ")"):
			match = match[:len(match)-1]
		default:
			return match
		}
	}
	return match
}
