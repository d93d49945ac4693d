package scan

import (
	"fmt"
	"time"

	"scanner_server/core/domain"
	"scanner_server/core/port/out"
	"scanner_server/pkg/apperr"

	"github.com/google/uuid"
)

// Assembler turns a classifier result into a Verdict.
type Assembler struct {
	decoder  out.LabelDecoder
	override *TrustOverride
	now      func() time.Time
}

// NewAssembler creates an assembler over the loaded label decoder.
func NewAssembler(decoder out.LabelDecoder, override *TrustOverride) *Assembler {
	if override == nil {
		override = NewTrustOverride(nil, 0)
	}
	return &Assembler{decoder: decoder, override: override, now: time.Now}
}

// Assemble decodes the label, applies the trust override and attaches the
// risk tier, features and full class distribution.
func (a *Assembler) Assemble(rawURL string, features domain.URLFeatures, classIndex int, probabilities []float64) (*domain.Verdict, error) {
	classes := a.decoder.Classes()
	if len(probabilities) != len(classes) {
		return nil, apperr.PredictionFailed(rawURL,
			fmt.Errorf("probability vector has %d entries, decoder has %d classes", len(probabilities), len(classes)))
	}
	if classIndex < 0 || classIndex >= len(probabilities) {
		return nil, apperr.PredictionFailed(rawURL,
			fmt.Errorf("class index %d out of range [0,%d)", classIndex, len(probabilities)))
	}

	rawLabel, err := a.decoder.Decode(classIndex)
	if err != nil {
		return nil, apperr.PredictionFailed(rawURL, err)
	}
	rawConfidence := probabilities[classIndex] * 100

	finalLabel, finalConfidence, overridden := a.override.Apply(rawURL, rawLabel, rawConfidence)

	dist := make([]domain.ClassProbability, len(classes))
	for i, label := range classes {
		dist[i] = domain.ClassProbability{Label: label, Probability: probabilities[i]}
	}

	return &domain.Verdict{
		ScanID:          uuid.New(),
		URL:             rawURL,
		RawLabel:        rawLabel,
		RawConfidence:   rawConfidence,
		FinalLabel:      finalLabel,
		FinalConfidence: finalConfidence,
		RiskTier:        domain.RiskTierFor(finalLabel),
		Overridden:      overridden,
		Features:        features.Named(),
		Probabilities:   dist,
		ScannedAt:       a.now().UTC(),
	}, nil
}
