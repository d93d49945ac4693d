package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Known class labels.
const (
	LabelBenign     = "benign"
	LabelDefacement = "defacement"
	LabelMalware    = "malware"
	LabelPhishing   = "phishing"
)

// RiskTier is the coarse severity shown alongside a label.
type RiskTier string

const (
	RiskLow      RiskTier = "Low"
	RiskHigh     RiskTier = "High"
	RiskCritical RiskTier = "Critical"
	RiskUnknown  RiskTier = "Unknown"
)

// RiskTierFor maps a label to its tier. Unknown labels map to RiskUnknown.
func RiskTierFor(label string) RiskTier {
	switch strings.ToLower(label) {
	case LabelBenign:
		return RiskLow
	case LabelPhishing, LabelDefacement:
		return RiskHigh
	case LabelMalware:
		return RiskCritical
	default:
		return RiskUnknown
	}
}

// IsBenign reports whether label is the benign class, ignoring case.
func IsBenign(label string) bool {
	return strings.EqualFold(label, LabelBenign)
}

// ClassProbability is one entry of the class distribution.
type ClassProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Verdict is the outcome of scanning one URL.
type Verdict struct {
	ScanID          uuid.UUID          `json:"scan_id"`
	URL             string             `json:"url"`
	RawLabel        string             `json:"raw_label"`
	RawConfidence   float64            `json:"raw_confidence"`
	FinalLabel      string             `json:"final_label"`
	FinalConfidence float64            `json:"final_confidence"`
	RiskTier        RiskTier           `json:"risk_tier"`
	Overridden      bool               `json:"overridden"`
	Features        []NamedFeature     `json:"features"`
	Probabilities   []ClassProbability `json:"probabilities"`
	ScannedAt       time.Time          `json:"scanned_at"`
}

// ScanFailureKind separates a missing model from a failed analysis.
type ScanFailureKind string

const (
	FailureModelUnavailable ScanFailureKind = "model_unavailable"
	FailureAnalysisFailed   ScanFailureKind = "analysis_failed"
)

// ScanFailure is the structured error reported at the scan boundary.
type ScanFailure struct {
	Kind    ScanFailureKind `json:"kind"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Detail  string          `json:"detail,omitempty"`
	URL     string          `json:"url"`
}

// ScanResult carries either a verdict or a failure, never both.
type ScanResult struct {
	Verdict *Verdict     `json:"verdict,omitempty"`
	Failure *ScanFailure `json:"failure,omitempty"`
}

// OK reports whether the scan produced a verdict.
func (r *ScanResult) OK() bool {
	return r != nil && r.Verdict != nil
}

// ModelInfo describes the loaded classifier artifact.
type ModelInfo struct {
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names"`
	Classes      []string  `json:"classes"`
	Trees        int       `json:"trees"`
	ModelPath    string    `json:"model_path"`
	LabelsPath   string    `json:"labels_path"`
	LoadedAt     time.Time `json:"loaded_at"`
}
