package schemas

import "time"

// -- Analysis Schemas --

// InputType describes how the URLs of a request were obtained.
type InputType string

const (
	InputText InputType = "text" // Free text, URLs are extracted.
	InputURLs InputType = "urls" // Pre-decoded URL list (OCR or QR collaborators).
)

// PatternKind names the extraction pattern class that matched a candidate.
type PatternKind string

const (
	PatternFullScheme  PatternKind = "full_scheme"
	PatternWWWPrefixed PatternKind = "www_prefixed"
	PatternBareDomain  PatternKind = "bare_domain"
	PatternShortener   PatternKind = "shortener"
)

// CandidateURL is a raw substring matched in the input text.
type CandidateURL struct {
	Raw  string      `json:"raw"`
	Kind PatternKind `json:"kind"`
}

// ExtractionResult is the output of a text scan: the maximal candidates that
// survived subset filtering and the deduplicated set of normalized URLs.
type ExtractionResult struct {
	Candidates []CandidateURL `json:"candidates"`
	URLs       []string       `json:"urls"`
}

// AnalysisRequest is the inbound request. Either field may be empty; URLs are
// merged with whatever is extracted from Text.
type AnalysisRequest struct {
	Text string   `json:"text,omitempty"`
	URLs []string `json:"urls,omitempty"`
}

// AnalysisReport bundles the risk assessment with per-stage diagnostic detail.
type AnalysisReport struct {
	ID              string                `json:"id"`
	InputType       InputType             `json:"input_type"`
	Assessment      RiskAssessment        `json:"assessment"`
	Extraction      ExtractionResult      `json:"extraction"`
	Reputation      ReputationBatchResult `json:"reputation"`
	Classifications []ClassifierVerdict   `json:"classifications"`
	ModelLoaded     bool                  `json:"model_loaded"`
	CreatedAt       time.Time             `json:"created_at"`
	DurationMS      int64                 `json:"duration_ms"`
}
