package schemas_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/smishguard/api/schemas"
)

// TestConstants pins the string values that appear in API responses and the
// oracle wire format.
func TestConstants(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		constant interface{}
		expected string
	}{
		// Risk levels
		{"RiskLow", schemas.RiskLow, "low"},
		{"RiskMedium", schemas.RiskMedium, "medium"},
		{"RiskHigh", schemas.RiskHigh, "high"},

		// Stages
		{"StageReputation", schemas.StageReputation, "reputation"},
		{"StageClassifier", schemas.StageClassifier, "classifier"},

		// Input types
		{"InputText", schemas.InputText, "text"},
		{"InputURLs", schemas.InputURLs, "urls"},

		// Threat categories
		{"ThreatMalware", schemas.ThreatMalware, "MALWARE"},
		{"ThreatSocialEngineering", schemas.ThreatSocialEngineering, "SOCIAL_ENGINEERING"},
		{"ThreatUnwantedSoftware", schemas.ThreatUnwantedSoftware, "UNWANTED_SOFTWARE"},
		{"ThreatPotentiallyHarmfulApplication", schemas.ThreatPotentiallyHarmfulApplication, "POTENTIALLY_HARMFUL_APPLICATION"},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var actual string
			if stringer, ok := tt.constant.(fmt.Stringer); ok {
				actual = stringer.String()
			} else {
				actual = fmt.Sprintf("%v", tt.constant)
			}
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestAllThreatTypes(t *testing.T) {
	assert.Len(t, schemas.AllThreatTypes, 4)
	for _, tt := range schemas.AllThreatTypes {
		assert.NotEqual(t, "unknown", tt.Label(), string(tt))
	}
}
