// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"scanner_server/core/domain"
)

// =============================================================================
// Classifier (pre-trained model artifact)
// =============================================================================

// Classifier scores a feature vector against a pre-trained model.
// Implementations are read-only and safe for concurrent use.
type Classifier interface {
	// Predict returns the arg-max class index and the class distribution.
	// A vector whose names or order differ from FeatureNames is rejected.
	Predict(vec domain.FeatureVector) (int, []float64, error)
	FeatureNames() []string
	NumClasses() int
	NumTrees() int
	ModelType() string
}

// LabelDecoder maps class indexes to labels and back.
type LabelDecoder interface {
	Decode(index int) (string, error)
	Encode(label string) (int, error)
	Classes() []string
	Len() int
}

// Artifact is a loaded classifier together with its label decoder.
type Artifact struct {
	Classifier Classifier
	Decoder    LabelDecoder
}

// ArtifactLoader reads the model artifact from storage.
type ArtifactLoader interface {
	Load() (*Artifact, error)
	Paths() (modelPath, labelsPath string)
}
