// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/smishguard/api/schemas"
)

// -- Reputation Checker Mock --

// MockReputationChecker mocks the schemas.ReputationChecker interface.
type MockReputationChecker struct {
	mock.Mock
}

func (m *MockReputationChecker) Check(ctx context.Context, urls []string) schemas.ReputationBatchResult {
	args := m.Called(ctx, urls)
	return args.Get(0).(schemas.ReputationBatchResult)
}

func (m *MockReputationChecker) CheckSingle(ctx context.Context, url string) schemas.ReputationBatchResult {
	args := m.Called(ctx, url)
	return args.Get(0).(schemas.ReputationBatchResult)
}

func (m *MockReputationChecker) ClearCache() {
	m.Called()
}

// -- URL Classifier Mock --

// MockURLClassifier mocks the schemas.URLClassifier interface.
type MockURLClassifier struct {
	mock.Mock
}

func (m *MockURLClassifier) IsLoaded() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockURLClassifier) Predict(url string) schemas.ClassifierVerdict {
	args := m.Called(url)
	return args.Get(0).(schemas.ClassifierVerdict)
}

// PredictBatch provides a mock function; a nil return yields an empty slice.
func (m *MockURLClassifier) PredictBatch(ctx context.Context, urls []string) []schemas.ClassifierVerdict {
	args := m.Called(ctx, urls)
	if v, ok := args.Get(0).([]schemas.ClassifierVerdict); ok {
		return v
	}
	return []schemas.ClassifierVerdict{}
}

// -- Analyzer Mock --

// MockAnalyzer mocks the schemas.Analyzer interface.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req schemas.AnalysisRequest) *schemas.AnalysisReport {
	args := m.Called(ctx, req)
	return args.Get(0).(*schemas.AnalysisReport)
}

// -- Report Store Mock --

// MockReportStore mocks the schemas.ReportStore interface.
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report *schemas.AnalysisReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) GetReport(ctx context.Context, id string) (*schemas.AnalysisReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.AnalysisReport), args.Error(1)
}

func (m *MockReportStore) ListRecent(ctx context.Context, limit int) ([]*schemas.AnalysisReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*schemas.AnalysisReport), args.Error(1)
}

var (
	_ schemas.ReputationChecker = (*MockReputationChecker)(nil)
	_ schemas.URLClassifier     = (*MockURLClassifier)(nil)
	_ schemas.Analyzer          = (*MockAnalyzer)(nil)
	_ schemas.ReportStore       = (*MockReportStore)(nil)
)
