// File: internal/classifier/classifier.go
package classifier

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/features"
)

// Classifier scores URLs with a pretrained model. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	model        Model
	featureNames []string
	metadata     schemas.ModelMetadata
	concurrency  int
	logger       *zap.Logger
}

var _ schemas.URLClassifier = (*Classifier)(nil)

// New wraps an already loaded model. featureNames is the column order the
// model was trained with.
func New(model Model, featureNames []string, meta schemas.ModelMetadata, logger *zap.Logger) (*Classifier, error) {
	if model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("feature names cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		model:        model,
		featureNames: append([]string(nil), featureNames...),
		metadata:     meta,
		concurrency:  runtime.NumCPU(),
		logger:       logger.Named("classifier"),
	}, nil
}

// NewUnloaded returns a Classifier that answers every URL with the neutral verdict.
func NewUnloaded(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{concurrency: 1, logger: logger.Named("classifier")}
}

// WithConcurrency caps how many URLs PredictBatch scores at once.
func (c *Classifier) WithConcurrency(n int) *Classifier {
	if n > 0 {
		c.concurrency = n
	}
	return c
}

// IsLoaded reports whether a model is available.
func (c *Classifier) IsLoaded() bool { return c.model != nil }

// Metadata describes the loaded artifact; zero when nothing is loaded.
func (c *Classifier) Metadata() schemas.ModelMetadata { return c.metadata }

// FeatureNames is the training column order.
func (c *Classifier) FeatureNames() []string {
	return append([]string(nil), c.featureNames...)
}

// Predict scores a single URL. Failures never propagate: they produce the
// neutral verdict with Error set.
func (c *Classifier) Predict(url string) schemas.ClassifierVerdict {
	if !c.IsLoaded() {
		return schemas.NeutralVerdict(url, schemas.VerdictModelNotLoaded)
	}

	vec := features.Extract(url)
	x, err := vec.Project(c.featureNames)
	if err != nil {
		return c.failed(url, fmt.Errorf("%w: %w", ErrFeatureMismatch, err))
	}

	label, probs, err := c.model.Predict(x)
	if err != nil {
		return c.failed(url, err)
	}
	if len(probs) != 2 || label < 0 || label > 1 {
		return c.failed(url, fmt.Errorf("%w: model returned label %d with %d probabilities", ErrInvalidModel, label, len(probs)))
	}

	return schemas.ClassifierVerdict{
		URL:           url,
		Malicious:     label == 1,
		Confidence:    probs[label],
		Probabilities: schemas.Probabilities{Benign: probs[0], Malicious: probs[1]},
		Features:      vec.Map(),
	}
}

func (c *Classifier) failed(url string, err error) schemas.ClassifierVerdict {
	c.logger.Debug("Prediction failed", zap.String("url", url), zap.Error(err))
	return schemas.NeutralVerdict(url, "prediction failed: "+err.Error())
}

// PredictBatch scores urls in parallel and returns verdicts in input order.
// URLs not yet started when ctx ends get a neutral verdict.
func (c *Classifier) PredictBatch(ctx context.Context, urls []string) []schemas.ClassifierVerdict {
	out := make([]schemas.ClassifierVerdict, len(urls))
	if !c.IsLoaded() {
		for i, u := range urls {
			out[i] = schemas.NeutralVerdict(u, schemas.VerdictModelNotLoaded)
		}
		return out
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				out[i] = schemas.NeutralVerdict(u, "prediction failed: "+err.Error())
				return nil
			}
			out[i] = c.Predict(u)
			return nil
		})
	}
	// Workers never return an error.
	_ = g.Wait()
	return out
}
