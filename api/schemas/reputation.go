package schemas

import "time"

// -- Reputation Schemas --

// ThreatType is a threat category as reported by the reputation oracle.
// The values are the oracle's enumerated strings and must not be changed.
type ThreatType string

const (
	ThreatMalware                       ThreatType = "MALWARE"
	ThreatSocialEngineering             ThreatType = "SOCIAL_ENGINEERING"
	ThreatUnwantedSoftware              ThreatType = "UNWANTED_SOFTWARE"
	ThreatPotentiallyHarmfulApplication ThreatType = "POTENTIALLY_HARMFUL_APPLICATION"
)

// AllThreatTypes is the fixed set of categories every lookup is checked against.
var AllThreatTypes = []ThreatType{
	ThreatMalware,
	ThreatSocialEngineering,
	ThreatUnwantedSoftware,
	ThreatPotentiallyHarmfulApplication,
}

var threatTypeLabels = map[ThreatType]string{
	ThreatMalware:                       "malware",
	ThreatSocialEngineering:             "phishing",
	ThreatUnwantedSoftware:              "unwanted software",
	ThreatPotentiallyHarmfulApplication: "potentially harmful application",
}

// Label returns a human readable name for the threat category.
func (t ThreatType) Label() string {
	if l, ok := threatTypeLabels[t]; ok {
		return l
	}
	return "unknown"
}

// ThreatMatch is a single oracle match: the offending URL and its category.
type ThreatMatch struct {
	URL           string     `json:"url"`
	ThreatType    ThreatType `json:"threat_type"`
	PlatformType  string     `json:"platform_type,omitempty"`
	CacheDuration string     `json:"cache_duration,omitempty"`
}

// Describe renders the match for display, e.g. "http://x.test/ (phishing)".
func (m ThreatMatch) Describe() string {
	return m.URL + " (" + m.ThreatType.Label() + ")"
}

// ReputationVerdict is the per-URL outcome of a reputation lookup. It is owned
// by the reputation checker and cached by normalized URL.
type ReputationVerdict struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	// ThreatFound is nil when the oracle could not give an answer.
	ThreatFound *bool         `json:"threat_found,omitempty"`
	ThreatTypes []ThreatType  `json:"threat_types,omitempty"`
	Matches     []ThreatMatch `json:"matches,omitempty"`
	CheckedAt   time.Time     `json:"checked_at"`
}

// IsThreat reports whether the verdict positively identifies a threat.
func (v ReputationVerdict) IsThreat() bool {
	return v.ThreatFound != nil && *v.ThreatFound
}

// ReputationBatchResult is the outcome of checking a set of URLs. When Success
// is false the lists are empty and callers must treat every URL as unknown,
// never as safe.
type ReputationBatchResult struct {
	Success       bool          `json:"success"`
	AllSafe       bool          `json:"all_safe"`
	Threats       []ThreatMatch `json:"threats"`
	SafeURLs      []string      `json:"safe_urls"`
	DangerousURLs []string      `json:"dangerous_urls"`
	Message       string        `json:"message"`
	CacheHits     int           `json:"cache_hits"` // URLs answered from the cache.
	Queried       int           `json:"queried"`    // URLs sent to the oracle.
}
