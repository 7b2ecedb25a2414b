// File: internal/risk/aggregate.go
package risk

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/smishguard/api/schemas"
)

// Fixed messages for the non-escalated outcomes.
const (
	MessageNoURL      = "No URL detected."
	MessageUnverified = "Could not verify the URLs; treat with caution."
	MessageAllPassed  = "All URLs passed both checks."
)

var stageNames = map[schemas.Stage]string{
	schemas.StageReputation: "the reputation oracle",
	schemas.StageClassifier: "the local classifier",
}

// Aggregate folds the two stage outcomes for a deduplicated batch into one
// assessment. Rules are evaluated in order and the first match wins:
//
//  1. no URLs: low
//  2. reputation succeeded and flagged a URL: high
//  3. classifier loaded and flagged a URL: high
//  4. reputation did not succeed: medium
//  5. otherwise: low
//
// The stages are OR-combined, so a high verdict lists every stage that flagged
// something and counts a URL flagged by both only once.
func Aggregate(urls []string, rep schemas.ReputationBatchResult, verdicts []schemas.ClassifierVerdict, modelLoaded bool) schemas.RiskAssessment {
	if len(urls) == 0 {
		return schemas.RiskAssessment{Level: schemas.RiskLow, Message: MessageNoURL}
	}

	var signals []schemas.Signal
	if rep.Success {
		signals = append(signals, reputationSignals(rep)...)
	}
	if modelLoaded {
		signals = append(signals, classifierSignals(verdicts)...)
	}

	if len(signals) > 0 {
		dangerous := union(urls, signals)
		return schemas.RiskAssessment{
			Level:         schemas.RiskHigh,
			Message:       highMessage(signals, len(dangerous)),
			Signals:       signals,
			DangerousURLs: dangerous,
		}
	}

	if !rep.Success {
		return schemas.RiskAssessment{Level: schemas.RiskMedium, Message: MessageUnverified}
	}
	return schemas.RiskAssessment{Level: schemas.RiskLow, Message: MessageAllPassed}
}

func reputationSignals(rep schemas.ReputationBatchResult) []schemas.Signal {
	labels := make(map[string][]string, len(rep.DangerousURLs))
	for _, m := range rep.Threats {
		label := m.ThreatType.Label()
		if !contains(labels[m.URL], label) {
			labels[m.URL] = append(labels[m.URL], label)
		}
	}
	out := make([]schemas.Signal, 0, len(rep.DangerousURLs))
	for _, u := range rep.DangerousURLs {
		out = append(out, schemas.Signal{
			URL:    u,
			Stage:  schemas.StageReputation,
			Detail: strings.Join(labels[u], ", "),
		})
	}
	return out
}

func classifierSignals(verdicts []schemas.ClassifierVerdict) []schemas.Signal {
	var out []schemas.Signal
	for _, v := range verdicts {
		if !v.Available() || !v.Malicious {
			continue
		}
		out = append(out, schemas.Signal{
			URL:    v.URL,
			Stage:  schemas.StageClassifier,
			Detail: fmt.Sprintf("confidence %.2f", v.Confidence),
		})
	}
	return out
}

// union lists every flagged URL once, in batch order. Flagged URLs outside
// the batch go last in signal order.
func union(urls []string, signals []schemas.Signal) []string {
	flagged := make(map[string]bool, len(signals))
	for _, s := range signals {
		flagged[s.URL] = true
	}
	out := make([]string, 0, len(flagged))
	for _, u := range urls {
		if flagged[u] {
			out = append(out, u)
			delete(flagged, u)
		}
	}
	for _, s := range signals {
		if flagged[s.URL] {
			out = append(out, s.URL)
			delete(flagged, s.URL)
		}
	}
	return out
}

func highMessage(signals []schemas.Signal, count int) string {
	var stages []string
	seen := make(map[schemas.Stage]bool, 2)
	for _, s := range signals {
		if !seen[s.Stage] {
			seen[s.Stage] = true
			stages = append(stages, stageNames[s.Stage])
		}
	}
	noun, pronoun := "URL", "it"
	if count != 1 {
		noun, pronoun = "URLs", "them"
	}
	return fmt.Sprintf("Danger: %d malicious %s flagged by %s. Do not open %s.",
		count, noun, strings.Join(stages, " and "), pronoun)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
