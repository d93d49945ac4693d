// Package model loads the exported random-forest URL classifier and its
// label decoder, and evaluates feature vectors against it.
package model

import (
	"fmt"

	"scanner_server/core/domain"
	"scanner_server/pkg/apperr"
)

// ModelTypeRandomForest is the only model_type this package evaluates.
const ModelTypeRandomForest = "random_forest"

// TreeExport is one decision tree in array form. Node i is a leaf when
// ChildrenLeft[i] == -1; otherwise a sample goes left when
// x[Feature[i]] <= Threshold[i].
type TreeExport struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// ForestExport is the serialized classifier artifact.
type ForestExport struct {
	ModelType    string       `json:"model_type"`
	FeatureNames []string     `json:"feature_names"`
	NClasses     int          `json:"n_classes"`
	Trees        []TreeExport `json:"trees"`
}

const leaf = -1

// Forest is a validated, immutable random forest. It is safe for
// concurrent use.
type Forest struct {
	modelType    string
	featureNames []string
	nClasses     int
	trees        []tree
}

type tree struct {
	left      []int
	right     []int
	feature   []int
	threshold []float64
	// dist holds each leaf's normalized class distribution; nil for split nodes.
	dist [][]float64
}

// NewForest validates an export and builds a Forest from it.
func NewForest(exp *ForestExport) (*Forest, error) {
	if exp == nil {
		return nil, fmt.Errorf("empty model export")
	}
	if exp.ModelType != "" && exp.ModelType != ModelTypeRandomForest {
		return nil, fmt.Errorf("unsupported model_type %q", exp.ModelType)
	}
	if len(exp.FeatureNames) == 0 {
		return nil, fmt.Errorf("model has no feature_names")
	}
	if exp.NClasses < 2 {
		return nil, fmt.Errorf("n_classes must be at least 2, got %d", exp.NClasses)
	}
	if len(exp.Trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}

	f := &Forest{
		modelType:    ModelTypeRandomForest,
		featureNames: append([]string(nil), exp.FeatureNames...),
		nClasses:     exp.NClasses,
		trees:        make([]tree, len(exp.Trees)),
	}
	for i := range exp.Trees {
		t, err := buildTree(&exp.Trees[i], len(exp.FeatureNames), exp.NClasses)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.trees[i] = t
	}
	return f, nil
}

func buildTree(exp *TreeExport, nFeatures, nClasses int) (tree, error) {
	n := len(exp.ChildrenLeft)
	if n == 0 {
		return tree{}, fmt.Errorf("no nodes")
	}
	if len(exp.ChildrenRight) != n || len(exp.Feature) != n || len(exp.Threshold) != n || len(exp.Value) != n {
		return tree{}, fmt.Errorf("node arrays have mismatched lengths")
	}

	t := tree{
		left:      exp.ChildrenLeft,
		right:     exp.ChildrenRight,
		feature:   exp.Feature,
		threshold: exp.Threshold,
		dist:      make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		l, r := exp.ChildrenLeft[i], exp.ChildrenRight[i]
		if l == leaf {
			if r != leaf {
				return tree{}, fmt.Errorf("node %d: left is a leaf marker but right is %d", i, r)
			}
			dist, err := normalize(exp.Value[i], nClasses)
			if err != nil {
				return tree{}, fmt.Errorf("node %d: %w", i, err)
			}
			t.dist[i] = dist
			continue
		}
		// Children always follow their parent, which also rules out cycles.
		if l <= i || l >= n || r <= i || r >= n {
			return tree{}, fmt.Errorf("node %d: child index out of range (left=%d right=%d)", i, l, r)
		}
		if exp.Feature[i] < 0 || exp.Feature[i] >= nFeatures {
			return tree{}, fmt.Errorf("node %d: feature index %d out of range", i, exp.Feature[i])
		}
	}
	return t, nil
}

func normalize(v []float64, nClasses int) ([]float64, error) {
	if len(v) != nClasses {
		return nil, fmt.Errorf("leaf value has %d entries, want %d", len(v), nClasses)
	}
	var sum float64
	for _, x := range v {
		if x < 0 {
			return nil, fmt.Errorf("negative leaf value %v", x)
		}
		sum += x
	}
	if sum == 0 {
		return nil, fmt.Errorf("leaf value sums to zero")
	}
	out := make([]float64, nClasses)
	for i, x := range v {
		out[i] = x / sum
	}
	return out, nil
}

func (t *tree) leafDist(x []float64) []float64 {
	i := 0
	for t.left[i] != leaf {
		if x[t.feature[i]] <= t.threshold[i] {
			i = t.left[i]
		} else {
			i = t.right[i]
		}
	}
	return t.dist[i]
}

// Predict returns the first arg-max class and the mean leaf distribution
// over all trees. vec must carry exactly the model's feature names in order.
func (f *Forest) Predict(vec domain.FeatureVector) (int, []float64, error) {
	if d := domain.DiffSchema(vec.Names, f.featureNames); !d.Empty() {
		return 0, nil, apperr.FeatureMismatch(d.Missing, d.Unexpected, d.OutOfOrder)
	}
	if len(vec.Values) != len(f.featureNames) {
		return 0, nil, apperr.FeatureMismatch(nil, nil, nil).
			WithDetail("values", len(vec.Values)).
			WithDetail("names", len(vec.Names))
	}

	probs := make([]float64, f.nClasses)
	for i := range f.trees {
		for c, p := range f.trees[i].leafDist(vec.Values) {
			probs[c] += p
		}
	}
	n := float64(len(f.trees))
	best := 0
	for c := range probs {
		probs[c] /= n
		if probs[c] > probs[best] {
			best = c
		}
	}
	return best, probs, nil
}

// FeatureNames returns the training-time feature order.
func (f *Forest) FeatureNames() []string {
	return append([]string(nil), f.featureNames...)
}

// NumClasses returns the number of output classes.
func (f *Forest) NumClasses() int { return f.nClasses }

// NumTrees returns the number of trees.
func (f *Forest) NumTrees() int { return len(f.trees) }

// ModelType returns the artifact's model type.
func (f *Forest) ModelType() string { return f.modelType }
