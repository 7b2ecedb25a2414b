package schemas

import "context"

// -- Pipeline Interfaces --

// ReputationChecker looks URLs up against the external reputation oracle.
//
//go:generate mockery --name ReputationChecker --output ../../internal/mocks --outpkg mocks
type ReputationChecker interface {
	// Check evaluates a batch of normalized URLs, cache first.
	Check(ctx context.Context, urls []string) ReputationBatchResult
	// CheckSingle is a one-element Check.
	CheckSingle(ctx context.Context, url string) ReputationBatchResult
	// ClearCache forgets every cached verdict.
	ClearCache()
}

// URLClassifier scores URLs with the locally loaded model.
type URLClassifier interface {
	IsLoaded() bool
	Predict(url string) ClassifierVerdict
	PredictBatch(ctx context.Context, urls []string) []ClassifierVerdict
}

// Analyzer runs the full pipeline for one request. It never fails for a
// well-formed request; degraded stages show up in the report instead.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) *AnalysisReport
}

// ReportStore persists analysis reports for later retrieval.
type ReportStore interface {
	SaveReport(ctx context.Context, report *AnalysisReport) error
	GetReport(ctx context.Context, id string) (*AnalysisReport, error)
	ListRecent(ctx context.Context, limit int) ([]*AnalysisReport, error)
}
