package schemas

// -- Risk Schemas --

// RiskLevel is the overall verdict for an analysis request. The values are
// lowercase to match the API responses consumed by the client applications.
type RiskLevel string

// Constants for the three risk levels, ordered from least to most severe.
const (
	RiskLow    RiskLevel = "low"    // No URL, or every URL passed both checks.
	RiskMedium RiskLevel = "medium" // The reputation oracle could not be consulted.
	RiskHigh   RiskLevel = "high"   // At least one URL was flagged by either stage.
)

func (r RiskLevel) String() string { return string(r) }

// Stage identifies which classification stage produced a signal.
type Stage string

const (
	StageReputation Stage = "reputation" // External reputation oracle.
	StageClassifier Stage = "classifier" // Local supervised model.
)

func (s Stage) String() string { return string(s) }

// Signal records that a single URL was flagged as dangerous by one stage.
type Signal struct {
	URL    string `json:"url"`
	Stage  Stage  `json:"stage"`
	Detail string `json:"detail,omitempty"` // Threat category or model confidence.
}

// RiskAssessment is the aggregated, explainable verdict for a batch of URLs.
// It is created once per analysis request.
type RiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Message string    `json:"message"`
	// Signals lists every (URL, stage) pair that contributed to escalation.
	Signals []Signal `json:"signals,omitempty"`
	// DangerousURLs is the de-duplicated union of URLs flagged by any stage.
	DangerousURLs []string `json:"dangerous_urls,omitempty"`
}
