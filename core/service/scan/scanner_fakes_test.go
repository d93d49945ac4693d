package scan

import (
	"fmt"
	"sync/atomic"

	"scanner_server/core/domain"
	"scanner_server/core/port/out"
)

var testClasses = []string{"benign", "defacement", "malware", "phishing"}

type sliceDecoder struct {
	classes []string
}

func (d *sliceDecoder) Decode(i int) (string, error) {
	if i < 0 || i >= len(d.classes) {
		return "", fmt.Errorf("index %d out of range", i)
	}
	return d.classes[i], nil
}

func (d *sliceDecoder) Encode(label string) (int, error) {
	for i, c := range d.classes {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", label)
}

func (d *sliceDecoder) Classes() []string { return d.classes }
func (d *sliceDecoder) Len() int          { return len(d.classes) }

// ruleClassifier flags suspicious words as phishing and IP hosts as malware.
type ruleClassifier struct {
	names   []string
	classes int
	predict func(vec domain.FeatureVector) (int, []float64, error)
}

func newRuleClassifier() *ruleClassifier {
	return &ruleClassifier{names: domain.FeatureNames[:], classes: len(testClasses)}
}

func (c *ruleClassifier) Predict(vec domain.FeatureVector) (int, []float64, error) {
	if c.predict != nil {
		return c.predict(vec)
	}
	if d := domain.DiffSchema(vec.Names, c.names); !d.Empty() {
		return 0, nil, fmt.Errorf("schema mismatch")
	}
	switch {
	case vec.Values[26] == 1:
		return 3, []float64{0.1, 0.05, 0.05, 0.8}, nil
	case vec.Values[18] == 1:
		return 2, []float64{0.1, 0.0, 0.7, 0.2}, nil
	default:
		return 0, []float64{0.9, 0.05, 0.0, 0.05}, nil
	}
}

func (c *ruleClassifier) FeatureNames() []string { return c.names }
func (c *ruleClassifier) NumClasses() int        { return c.classes }
func (c *ruleClassifier) NumTrees() int          { return 1 }
func (c *ruleClassifier) ModelType() string      { return "rules" }

type fakeLoader struct {
	artifact *out.Artifact
	err      error
	calls    atomic.Int32
}

func newFakeLoader(c out.Classifier) *fakeLoader {
	return &fakeLoader{artifact: &out.Artifact{
		Classifier: c,
		Decoder:    &sliceDecoder{classes: testClasses},
	}}
}

func (l *fakeLoader) Load() (*out.Artifact, error) {
	l.calls.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return l.artifact, nil
}

func (l *fakeLoader) Paths() (string, string) {
	return "fake/model.json", "fake/labels.json"
}
