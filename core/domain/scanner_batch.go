package domain

import (
	"strings"
	"time"
)

// Expected outcomes for a validation case.
const (
	ExpectBenign    = "benign"
	ExpectMalicious = "malicious"
)

// BatchCase is one URL of the validation harness with its expected outcome.
type BatchCase struct {
	URL    string `json:"url" yaml:"url" bson:"url"`
	Expect string `json:"expect" yaml:"expect" bson:"expect"`
}

// Matches reports whether a final label satisfies the expectation.
// "malicious" accepts any non-benign label; any other value must equal the label.
func (c BatchCase) Matches(finalLabel string) bool {
	switch strings.ToLower(c.Expect) {
	case ExpectMalicious:
		return !IsBenign(finalLabel)
	case ExpectBenign:
		return IsBenign(finalLabel)
	default:
		return strings.EqualFold(c.Expect, finalLabel)
	}
}

// BatchCaseResult is the outcome of one validation case.
type BatchCaseResult struct {
	URL        string   `json:"url" bson:"url"`
	Expect     string   `json:"expect" bson:"expect"`
	RawLabel   string   `json:"raw_label,omitempty" bson:"raw_label,omitempty"`
	Label      string   `json:"label,omitempty" bson:"label,omitempty"`
	Confidence float64  `json:"confidence" bson:"confidence"`
	RiskTier   RiskTier `json:"risk_tier,omitempty" bson:"risk_tier,omitempty"`
	Overridden bool     `json:"overridden" bson:"overridden"`
	Correct    bool     `json:"correct" bson:"correct"`
	ElapsedMs  float64  `json:"elapsed_ms" bson:"elapsed_ms"`
	Error      string   `json:"error,omitempty" bson:"error,omitempty"`
}

// BatchSummary aggregates a validation run.
type BatchSummary struct {
	Total         int     `json:"total" bson:"total"`
	Correct       int     `json:"correct" bson:"correct"`
	Failed        int     `json:"failed" bson:"failed"`
	Accuracy      float64 `json:"accuracy" bson:"accuracy"`
	AvgMs         float64 `json:"avg_ms" bson:"avg_ms"`
	MinMs         float64 `json:"min_ms" bson:"min_ms"`
	MaxMs         float64 `json:"max_ms" bson:"max_ms"`
	TotalMs       float64 `json:"total_ms" bson:"total_ms"`
	URLsPerSecond float64 `json:"urls_per_second" bson:"urls_per_second"`
}

// BatchReport is the persisted result of a validation run.
type BatchReport struct {
	ID          string            `json:"id" bson:"_id"`
	GeneratedAt time.Time         `json:"generated_at" bson:"generated_at"`
	Results     []BatchCaseResult `json:"results" bson:"results"`
	Summary     BatchSummary      `json:"summary" bson:"summary"`
}
