package schemas

// -- Classifier Schemas --

// VerdictModelNotLoaded marks a verdict produced while no model is available.
const VerdictModelNotLoaded = "model not loaded"

// Probabilities holds the per-class probability mass from the local model.
type Probabilities struct {
	Benign    float64 `json:"benign"`
	Malicious float64 `json:"malicious"`
}

// ClassifierVerdict is the local model's opinion on a single URL. It is
// computed fresh on every call and never cached.
type ClassifierVerdict struct {
	URL       string `json:"url"`
	Malicious bool   `json:"malicious"`
	// Confidence is the probability assigned to the predicted class.
	Confidence    float64            `json:"confidence"`
	Probabilities Probabilities      `json:"probabilities"`
	Features      map[string]float64 `json:"features,omitempty"`
	// Error is set when no prediction is available for this URL.
	Error string `json:"error,omitempty"`
}

// Available reports whether the verdict carries a real prediction, as opposed
// to the neutral placeholder returned on failure.
func (v ClassifierVerdict) Available() bool { return v.Error == "" }

// NeutralVerdict builds the 50/50 placeholder used when the model is missing or
// scoring a URL failed.
func NeutralVerdict(url, reason string) ClassifierVerdict {
	return ClassifierVerdict{
		URL:           url,
		Probabilities: Probabilities{Benign: 0.5, Malicious: 0.5},
		Error:         reason,
	}
}

// ModelMetadata describes the trained artifact as recorded at training time.
type ModelMetadata struct {
	ModelType string  `json:"model_type"`
	Accuracy  float64 `json:"accuracy"`
	Recall    float64 `json:"recall"`
	Precision float64 `json:"precision,omitempty"`
	F1        float64 `json:"f1_score,omitempty"`
	TrainedAt string  `json:"trained_at,omitempty"`
}
