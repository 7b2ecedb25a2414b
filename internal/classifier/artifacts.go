// File: internal/classifier/artifacts.go
package classifier

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/features"
)

// Artifact file names inside the model directory.
const (
	ModelFile        = "url_classifier.json"
	FeatureNamesFile = "feature_names.json"
	MetadataFile     = "metadata.json"
)

// modelEnvelope is the on-disk model. Only the block matching ModelType is read.
type modelEnvelope struct {
	ModelType string `json:"model_type"`
	Forest
	Logistic
}

// Artifacts is everything read from a model directory.
type Artifacts struct {
	Model        Model
	FeatureNames []string
	Metadata     schemas.ModelMetadata
}

// ReadArtifacts loads and validates the three artifact files in dir.
func ReadArtifacts(dir string) (*Artifacts, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand model dir %q: %w", dir, err)
	}

	var env modelEnvelope
	if err := readJSON(filepath.Join(expanded, ModelFile), &env); err != nil {
		return nil, err
	}
	var names []string
	if err := readJSON(filepath.Join(expanded, FeatureNamesFile), &names); err != nil {
		return nil, err
	}
	var meta schemas.ModelMetadata
	if err := readJSON(filepath.Join(expanded, MetadataFile), &meta); err != nil {
		return nil, err
	}

	model, want, err := env.build()
	if err != nil {
		return nil, err
	}
	if len(names) != want {
		return nil, fmt.Errorf("%w: %d feature names for a %d feature model", ErrFeatureMismatch, len(names), want)
	}
	for _, name := range names {
		if _, ok := features.Index(name); !ok {
			return nil, fmt.Errorf("%w: %w", ErrFeatureMismatch, &features.UnknownFeatureError{Name: name})
		}
	}
	if meta.ModelType == "" {
		meta.ModelType = env.ModelType
	}
	return &Artifacts{Model: model, FeatureNames: names, Metadata: meta}, nil
}

func (e *modelEnvelope) build() (Model, int, error) {
	switch e.ModelType {
	case TypeRandomForest:
		f := e.Forest
		if err := f.Validate(); err != nil {
			return nil, 0, err
		}
		return &f, f.NFeatures, nil
	case TypeLogisticRegression:
		l := e.Logistic
		if err := l.Validate(); err != nil {
			return nil, 0, err
		}
		return &l, len(l.Coef), nil
	default:
		return nil, 0, fmt.Errorf("%w: unsupported model_type %q", ErrInvalidModel, e.ModelType)
	}
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads the artifacts in dir. It never fails: a missing or broken
// artifact yields a Classifier that stays unloaded for its whole lifetime.
func Load(dir string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	art, err := ReadArtifacts(dir)
	if err != nil {
		logger.Named("classifier").Warn("URL classifier disabled, artifacts could not be loaded",
			zap.String("model_dir", dir), zap.Error(err))
		return NewUnloaded(logger)
	}
	c, err := New(art.Model, art.FeatureNames, art.Metadata, logger)
	if err != nil {
		logger.Named("classifier").Warn("URL classifier disabled", zap.Error(err))
		return NewUnloaded(logger)
	}
	c.logger.Info("URL classifier loaded",
		zap.String("model_dir", dir),
		zap.String("model_type", art.Metadata.ModelType),
		zap.Float64("accuracy", art.Metadata.Accuracy),
		zap.Float64("recall", art.Metadata.Recall))
	return c
}
