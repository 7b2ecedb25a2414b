// File: internal/classifier/model.go
package classifier

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrModelNotLoaded is returned when no artifact could be loaded.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrFeatureMismatch is returned when a feature vector does not fit the model.
	ErrFeatureMismatch = errors.New("feature vector does not match the model")
	// ErrInvalidModel is returned when an artifact is structurally broken.
	ErrInvalidModel = errors.New("invalid model artifact")
)

// Model types as written in the artifact's "model_type" field.
const (
	TypeRandomForest       = "random_forest"
	TypeLogisticRegression = "logistic_regression"
)

// Model is a pretrained binary classifier. Label 1 is malicious; probs holds
// one probability per class, benign first.
type Model interface {
	Predict(x []float64) (label int, probs []float64, err error)
}

// -- Random forest --

// Tree is a single fitted decision tree in the flattened array layout that
// scikit-learn exposes on tree_. A node is a leaf when its left child is -1.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"` // Per node class counts.
}

const leaf = -1

func (t *Tree) validate(nFeatures, nClasses int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidModel)
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("%w: tree arrays differ in length", ErrInvalidModel)
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf {
			if len(t.Value[i]) != nClasses {
				return fmt.Errorf("%w: leaf %d has %d class counts, want %d", ErrInvalidModel, i, len(t.Value[i]), nClasses)
			}
			continue
		}
		// Children always come after their parent, so traversal terminates.
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("%w: node %d has out of order children", ErrInvalidModel, i)
		}
		if f := t.Feature[i]; f < 0 || f >= nFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d", ErrInvalidModel, i, f)
		}
	}
	return nil
}

// proba walks x down to a leaf and returns the normalized class counts there.
func (t *Tree) proba(x []float64, out []float64) {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	counts := t.Value[node]
	var total float64
	for _, c := range counts {
		total += c
	}
	for k, c := range counts {
		if total > 0 {
			out[k] += c / total
		} else {
			out[k] += 1 / float64(len(counts))
		}
	}
}

// Forest averages the leaf distributions of its trees.
type Forest struct {
	NFeatures int    `json:"n_features"`
	NClasses  int    `json:"n_classes"`
	Trees     []Tree `json:"trees"`
}

// Validate checks the forest once so Predict can walk it without bounds checks.
func (f *Forest) Validate() error {
	if f.NFeatures <= 0 {
		return fmt.Errorf("%w: n_features must be positive", ErrInvalidModel)
	}
	if f.NClasses == 0 {
		f.NClasses = 2
	}
	if f.NClasses != 2 {
		return fmt.Errorf("%w: expected a binary model, got %d classes", ErrInvalidModel, f.NClasses)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NFeatures, f.NClasses); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *Forest) Predict(x []float64) (int, []float64, error) {
	if len(x) != f.NFeatures {
		return 0, nil, fmt.Errorf("%w: got %d features, want %d", ErrFeatureMismatch, len(x), f.NFeatures)
	}
	probs := make([]float64, f.NClasses)
	for i := range f.Trees {
		f.Trees[i].proba(x, probs)
	}
	n := float64(len(f.Trees))
	for k := range probs {
		probs[k] /= n
	}
	return argmax(probs), probs, nil
}

// -- Logistic regression --

// Logistic is a binary logistic regression: P(malicious) = sigmoid(w.x + b).
type Logistic struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (l *Logistic) Validate() error {
	if len(l.Coef) == 0 {
		return fmt.Errorf("%w: logistic model has no coefficients", ErrInvalidModel)
	}
	return nil
}

func (l *Logistic) Predict(x []float64) (int, []float64, error) {
	if len(x) != len(l.Coef) {
		return 0, nil, fmt.Errorf("%w: got %d features, want %d", ErrFeatureMismatch, len(x), len(l.Coef))
	}
	z := l.Intercept
	for i, w := range l.Coef {
		z += w * x[i]
	}
	p := 1 / (1 + math.Exp(-z))
	label := 0
	if z > 0 {
		label = 1
	}
	return label, []float64{1 - p, p}, nil
}

// argmax returns the first index holding the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
