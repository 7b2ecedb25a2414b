// File: internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/risk"
	"github.com/xkilldash9x/smishguard/internal/urlextract"
)

// DefaultTimeout bounds one analysis request when none is configured.
const DefaultTimeout = 30 * time.Second

// saveTimeout bounds persisting a finished report.
const saveTimeout = 5 * time.Second

// TextExtractor finds candidate URLs in free text.
type TextExtractor interface {
	Extract(text string) schemas.ExtractionResult
}

// Expander resolves a shortened URL to its final destination.
type Expander interface {
	Expand(ctx context.Context, shortURL string) string
}

// Options holds the optional collaborators and limits of an Analyzer.
type Options struct {
	Timeout  time.Duration
	Expander Expander            // nil disables short URL expansion
	Store    schemas.ReportStore // nil disables report history
	Clock    func() time.Time
}

// Analyzer runs the whole pipeline for a request: extraction, both
// classification stages concurrently, then risk aggregation.
type Analyzer struct {
	extractor  TextExtractor
	reputation schemas.ReputationChecker
	classifier schemas.URLClassifier
	expander   Expander
	store      schemas.ReportStore
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

var _ schemas.Analyzer = (*Analyzer)(nil)

// New builds an Analyzer from its collaborators.
func New(extractor TextExtractor, reputation schemas.ReputationChecker, classifier schemas.URLClassifier, opts Options, logger *zap.Logger) (*Analyzer, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if reputation == nil {
		return nil, fmt.Errorf("reputation checker cannot be nil")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Analyzer{
		extractor:  extractor,
		reputation: reputation,
		classifier: classifier,
		expander:   opts.Expander,
		store:      opts.Store,
		timeout:    opts.Timeout,
		now:        opts.Clock,
		logger:     logger.Named("analyzer"),
	}, nil
}

// AnalyzeText assesses the URLs found in a message body.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) *schemas.AnalysisReport {
	return a.Analyze(ctx, schemas.AnalysisRequest{Text: text})
}

// AnalyzeURLs assesses a list of URLs decoded elsewhere, e.g. from a QR code.
func (a *Analyzer) AnalyzeURLs(ctx context.Context, urls []string) *schemas.AnalysisReport {
	return a.Analyze(ctx, schemas.AnalysisRequest{URLs: urls})
}

// Analyze never fails. Stage failures degrade the assessment instead.
func (a *Analyzer) Analyze(ctx context.Context, req schemas.AnalysisRequest) *schemas.AnalysisReport {
	start := a.now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	report := &schemas.AnalysisReport{
		ID:        uuid.NewString(),
		InputType: schemas.InputText,
		CreatedAt: start.UTC(),
	}
	if req.Text == "" && len(req.URLs) > 0 {
		report.InputType = schemas.InputURLs
	}
	logger := a.logger.With(zap.String("report_id", report.ID))

	report.Extraction = a.extractor.Extract(req.Text)
	urls := a.collect(ctx, report.Extraction.URLs, req.URLs, logger)
	report.Extraction.URLs = urls

	var (
		rep      schemas.ReputationBatchResult
		verdicts []schemas.ClassifierVerdict
	)
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rep = a.reputation.Check(groupCtx, urls)
		return nil
	})
	g.Go(func() error {
		verdicts = a.classifier.PredictBatch(groupCtx, urls)
		return nil
	})
	_ = g.Wait()

	modelLoaded := a.classifier.IsLoaded()
	report.Reputation = rep
	report.Classifications = verdicts
	report.ModelLoaded = modelLoaded
	report.Assessment = risk.Aggregate(urls, rep, verdicts, modelLoaded)
	report.DurationMS = a.now().Sub(start).Milliseconds()

	logger.Info("Analysis complete",
		zap.String("input_type", string(report.InputType)),
		zap.Int("urls", len(urls)),
		zap.String("risk", report.Assessment.Level.String()),
		zap.Bool("reputation_ok", rep.Success),
		zap.Bool("model_loaded", modelLoaded),
		zap.Int64("duration_ms", report.DurationMS))

	a.save(ctx, report, logger)
	return report
}

// collect merges extracted and supplied URLs into one sorted, deduplicated
// batch of normalized URLs, adding expansion targets of shorteners.
func (a *Analyzer) collect(ctx context.Context, extracted, supplied []string, logger *zap.Logger) []string {
	seen := make(map[string]struct{}, len(extracted)+len(supplied))
	add := func(u string) bool {
		if _, dup := seen[u]; dup {
			return false
		}
		seen[u] = struct{}{}
		return true
	}

	for _, u := range extracted {
		add(u)
	}
	for _, raw := range supplied {
		n, err := urlextract.Normalize(raw)
		if err != nil {
			logger.Debug("Dropping supplied URL", zap.String("url", raw), zap.Error(err))
			continue
		}
		add(n)
	}

	if a.expander != nil {
		var shorteners []string
		for u := range seen {
			if urlextract.IsShortener(u) {
				shorteners = append(shorteners, u)
			}
		}
		sort.Strings(shorteners)
		for _, u := range shorteners {
			target := a.expander.Expand(ctx, u)
			n, err := urlextract.Normalize(target)
			if err != nil || !add(n) {
				continue
			}
			logger.Debug("Expanded short URL", zap.String("url", u), zap.String("target", n))
		}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func (a *Analyzer) save(ctx context.Context, report *schemas.AnalysisReport, logger *zap.Logger) {
	if a.store == nil {
		return
	}
	// The request deadline may already be spent on the oracle.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := a.store.SaveReport(saveCtx, report); err != nil {
		logger.Warn("Failed to persist analysis report", zap.Error(err))
	}
}
