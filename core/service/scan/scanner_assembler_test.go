package scan

import (
	"testing"

	"scanner_server/core/domain"
	"scanner_server/pkg/apperr"
)

func TestRiskTierFor(t *testing.T) {
	tests := map[string]domain.RiskTier{
		"benign":     domain.RiskLow,
		"phishing":   domain.RiskHigh,
		"malware":    domain.RiskCritical,
		"defacement": domain.RiskHigh,
		"MALWARE":    domain.RiskCritical,
		"spam":       domain.RiskUnknown,
		"":           domain.RiskUnknown,
	}
	for label, want := range tests {
		if got := domain.RiskTierFor(label); got != want {
			t.Errorf("RiskTierFor(%q) = %s, want %s", label, got, want)
		}
	}
}

func TestAssembler_Assemble(t *testing.T) {
	a := NewAssembler(&sliceDecoder{classes: testClasses}, NewTrustOverride(nil, 0))
	probs := []float64{0.1, 0.1, 0.2, 0.6}

	v, err := a.Assemble("http://example-login-bank.com", domain.URLFeatures{Suspicious: 1}, 3, probs)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if v.RawLabel != "phishing" || v.FinalLabel != "phishing" {
		t.Errorf("labels = %s/%s", v.RawLabel, v.FinalLabel)
	}
	if v.RawConfidence != 60 || v.FinalConfidence != 60 {
		t.Errorf("confidence = %v/%v, want 60", v.RawConfidence, v.FinalConfidence)
	}
	if v.RiskTier != domain.RiskHigh || v.Overridden {
		t.Errorf("tier = %s overridden = %v", v.RiskTier, v.Overridden)
	}
	if len(v.Probabilities) != 4 || v.Probabilities[2].Label != "malware" || v.Probabilities[2].Probability != 0.2 {
		t.Errorf("probabilities = %+v", v.Probabilities)
	}
	if len(v.Features) != domain.FeatureCount || v.Features[26].Name != "suspicious" || v.Features[26].Value != 1 {
		t.Errorf("features = %+v", v.Features)
	}
	if v.ScanID.String() == "" || v.ScannedAt.IsZero() {
		t.Error("scan id and timestamp must be set")
	}
}

func TestAssembler_Override(t *testing.T) {
	a := NewAssembler(&sliceDecoder{classes: testClasses}, NewTrustOverride(nil, 0))

	v, err := a.Assemble("https://www.google.com", domain.URLFeatures{}, 2, []float64{0.2, 0.1, 0.6, 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if v.RawLabel != "malware" || v.FinalLabel != "benign" || !v.Overridden {
		t.Errorf("got raw=%s final=%s overridden=%v", v.RawLabel, v.FinalLabel, v.Overridden)
	}
	if v.FinalConfidence != 95 || v.RiskTier != domain.RiskLow {
		t.Errorf("final confidence %v tier %s", v.FinalConfidence, v.RiskTier)
	}
}

func TestAssembler_PredictionFailure(t *testing.T) {
	a := NewAssembler(&sliceDecoder{classes: testClasses}, nil)

	tests := []struct {
		name  string
		index int
		probs []float64
	}{
		{"index too large", 4, []float64{0.25, 0.25, 0.25, 0.25}},
		{"negative index", -1, []float64{0.25, 0.25, 0.25, 0.25}},
		{"short distribution", 0, []float64{0.5, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Assemble("http://x.test", domain.URLFeatures{}, tt.index, tt.probs)
			if !apperr.HasCode(err, apperr.CodePredictionFailed) {
				t.Errorf("expected PREDICTION_FAILED, got %v", err)
			}
		})
	}
}
