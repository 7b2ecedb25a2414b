package schemas_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/smishguard/api/schemas"
)

func TestThreatLabels(t *testing.T) {
	assert.Equal(t, "phishing", schemas.ThreatSocialEngineering.Label())
	assert.Equal(t, "malware", schemas.ThreatMalware.Label())
	assert.Equal(t, "unknown", schemas.ThreatType("SOMETHING_NEW").Label())

	m := schemas.ThreatMatch{URL: "http://x.test/", ThreatType: schemas.ThreatSocialEngineering}
	assert.Equal(t, "http://x.test/ (phishing)", m.Describe())
}

func TestReputationVerdict_IsThreat(t *testing.T) {
	yes, no := true, false
	assert.True(t, schemas.ReputationVerdict{ThreatFound: &yes}.IsThreat())
	assert.False(t, schemas.ReputationVerdict{ThreatFound: &no}.IsThreat())
	assert.False(t, schemas.ReputationVerdict{}.IsThreat(), "an unanswered lookup is not a threat")
}

func TestNeutralVerdict(t *testing.T) {
	v := schemas.NeutralVerdict("https://a.example", schemas.VerdictModelNotLoaded)
	assert.False(t, v.Available())
	assert.False(t, v.Malicious)
	assert.Zero(t, v.Confidence)
	assert.Equal(t, schemas.Probabilities{Benign: 0.5, Malicious: 0.5}, v.Probabilities)

	assert.True(t, schemas.ClassifierVerdict{URL: "https://a.example", Confidence: 0.9}.Available())
}

// TestStructJSONTags verifies the json tags that client applications depend on.
func TestStructJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		structRef    interface{}
		expectedTags map[string]string
	}{
		{
			name:      "RiskAssessment",
			structRef: schemas.RiskAssessment{},
			expectedTags: map[string]string{
				"Level":         "level",
				"Message":       "message",
				"Signals":       "signals,omitempty",
				"DangerousURLs": "dangerous_urls,omitempty",
			},
		},
		{
			name:      "ReputationBatchResult",
			structRef: schemas.ReputationBatchResult{},
			expectedTags: map[string]string{
				"Success":       "success",
				"AllSafe":       "all_safe",
				"Threats":       "threats",
				"SafeURLs":      "safe_urls",
				"DangerousURLs": "dangerous_urls",
				"Message":       "message",
			},
		},
		{
			name:      "AnalysisReport",
			structRef: schemas.AnalysisReport{},
			expectedTags: map[string]string{
				"ID":              "id",
				"InputType":       "input_type",
				"Assessment":      "assessment",
				"Classifications": "classifications",
				"ModelLoaded":     "model_loaded",
				"CreatedAt":       "created_at",
			},
		},
		{
			name:      "ModelMetadata",
			structRef: schemas.ModelMetadata{},
			expectedTags: map[string]string{
				"ModelType": "model_type",
				"Accuracy":  "accuracy",
				"Recall":    "recall",
				"F1":        "f1_score,omitempty",
			},
		},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			typ := reflect.TypeOf(tt.structRef)
			for fieldName, expectedTag := range tt.expectedTags {
				field, ok := typ.FieldByName(fieldName)
				if assert.True(t, ok, "field %s not found in %s", fieldName, tt.name) {
					assert.Equal(t, expectedTag, field.Tag.Get("json"), "json tag of %s.%s", tt.name, fieldName)
				}
			}
		})
	}
}
