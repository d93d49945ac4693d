package model

import (
	"fmt"
	"os"

	"scanner_server/core/domain"
	"scanner_server/core/port/out"
	"scanner_server/pkg/apperr"

	"github.com/goccy/go-json"
)

// Load reads and validates the forest and label decoder. Every failure is
// reported as an ARTIFACT_LOAD_FAILED error.
func Load(modelPath, labelsPath string) (*out.Artifact, error) {
	var exp ForestExport
	if err := readJSON(modelPath, &exp); err != nil {
		return nil, apperr.ArtifactLoadFailed(modelPath, err)
	}
	forest, err := NewForest(&exp)
	if err != nil {
		return nil, apperr.ArtifactLoadFailed(modelPath, err)
	}
	if d := domain.DiffSchema(forest.featureNames, domain.FeatureNames[:]); !d.Empty() {
		return nil, apperr.ArtifactLoadFailed(modelPath,
			apperr.FeatureMismatch(d.Missing, d.Unexpected, d.OutOfOrder))
	}

	var labels LabelExport
	if err := readJSON(labelsPath, &labels); err != nil {
		return nil, apperr.ArtifactLoadFailed(labelsPath, err)
	}
	decoder, err := NewLabelDecoder(labels.Classes)
	if err != nil {
		return nil, apperr.ArtifactLoadFailed(labelsPath, err)
	}
	if decoder.Len() != forest.NumClasses() {
		return nil, apperr.ArtifactLoadFailed(labelsPath,
			fmt.Errorf("label decoder has %d classes, model has %d", decoder.Len(), forest.NumClasses()))
	}

	return &out.Artifact{Classifier: forest, Decoder: decoder}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// FileLoader implements out.ArtifactLoader over two JSON files.
type FileLoader struct {
	ModelPath  string
	LabelsPath string
}

// NewFileLoader creates a loader for the given paths.
func NewFileLoader(modelPath, labelsPath string) *FileLoader {
	return &FileLoader{ModelPath: modelPath, LabelsPath: labelsPath}
}

// Load implements out.ArtifactLoader.
func (l *FileLoader) Load() (*out.Artifact, error) {
	return Load(l.ModelPath, l.LabelsPath)
}

// Paths implements out.ArtifactLoader.
func (l *FileLoader) Paths() (string, string) {
	return l.ModelPath, l.LabelsPath
}
