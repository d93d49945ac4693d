package scan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"scanner_server/core/domain"
	"scanner_server/pkg/apperr"
	"scanner_server/pkg/metrics"
)

func TestService_Scan(t *testing.T) {
	loader := newFakeLoader(newRuleClassifier())
	svc := NewService(loader, Config{})

	if svc.Ready() {
		t.Fatal("service must not be ready before the first load")
	}

	v, err := svc.Scan(context.Background(), "http://example-login-bank.com")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if v.FinalLabel != "phishing" || v.RiskTier != domain.RiskHigh {
		t.Errorf("verdict = %s / %s", v.FinalLabel, v.RiskTier)
	}
	if !svc.Ready() {
		t.Error("service should be ready after a scan")
	}

	stats := svc.Latency().AllStats()
	for _, stage := range []string{metrics.StageExtract, metrics.StagePredict, metrics.StageScan} {
		if stats[stage].Count != 1 {
			t.Errorf("stage %s count = %d, want 1", stage, stats[stage].Count)
		}
	}
	if got := svc.Counters().Snapshot().Labels["phishing"]; got != 1 {
		t.Errorf("phishing counter = %d", got)
	}
}

func TestService_TrustOverride(t *testing.T) {
	svc := NewService(newFakeLoader(newRuleClassifier()), Config{})

	v, err := svc.Scan(context.Background(), "https://www.google.com/accounts/login")
	if err != nil {
		t.Fatal(err)
	}
	if v.RawLabel != "phishing" {
		t.Fatalf("raw label = %s, want phishing", v.RawLabel)
	}
	if v.FinalLabel != "benign" || v.FinalConfidence != 95 || !v.Overridden {
		t.Errorf("final = %s %v overridden=%v", v.FinalLabel, v.FinalConfidence, v.Overridden)
	}
}

func TestService_CustomTrustList(t *testing.T) {
	svc := NewService(newFakeLoader(newRuleClassifier()), Config{
		TrustList:          NewTrustList([]string{"corp.example"}),
		OverrideConfidence: 99,
	})

	v, _ := svc.Scan(context.Background(), "https://sso.corp.example/login")
	if v.FinalLabel != "benign" || v.FinalConfidence != 99 {
		t.Errorf("final = %s %v", v.FinalLabel, v.FinalConfidence)
	}
	v, _ = svc.Scan(context.Background(), "https://www.google.com/login")
	if v.Overridden {
		t.Error("default list must not apply when a custom list is configured")
	}
}

func TestService_LoadsOnce(t *testing.T) {
	loader := newFakeLoader(newRuleClassifier())
	svc := NewService(loader, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Scan(context.Background(), "https://example.org"); err != nil {
				t.Errorf("Scan() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestService_LoadFailure(t *testing.T) {
	loader := newFakeLoader(newRuleClassifier())
	loader.err = errors.New("file not found")
	svc := NewService(loader, Config{})

	if err := svc.Warmup(); !apperr.HasCode(err, apperr.CodeArtifactLoadFailed) {
		t.Fatalf("Warmup() = %v, want ARTIFACT_LOAD_FAILED", err)
	}
	if _, err := svc.Scan(context.Background(), "https://example.org"); !apperr.HasCode(err, apperr.CodeArtifactLoadFailed) {
		t.Errorf("Scan() = %v, want ARTIFACT_LOAD_FAILED", err)
	}

	res := svc.SafeScan(context.Background(), "https://example.org")
	if res.OK() || res.Failure == nil {
		t.Fatal("expected failure result")
	}
	if res.Failure.Kind != domain.FailureModelUnavailable || res.Failure.Message != "could not load models" {
		t.Errorf("failure = %+v", res.Failure)
	}
	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
	if svc.Ready() {
		t.Error("service must not be ready after a failed load")
	}
	if _, err := svc.ModelInfo(); err == nil {
		t.Error("ModelInfo() should fail without a model")
	}
}

func TestService_LoadRejectsInconsistentArtifact(t *testing.T) {
	tests := []struct {
		name       string
		classifier *ruleClassifier
	}{
		{"class count", &ruleClassifier{names: domain.FeatureNames[:], classes: 3}},
		{"schema", &ruleClassifier{names: domain.FeatureNames[1:], classes: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newFakeLoader(tt.classifier), Config{})
			if err := svc.Warmup(); !apperr.HasCode(err, apperr.CodeArtifactLoadFailed) {
				t.Errorf("Warmup() = %v, want ARTIFACT_LOAD_FAILED", err)
			}
		})
	}
}

func TestService_SafeScanAnalysisFailures(t *testing.T) {
	tests := []struct {
		name     string
		predict  func(domain.FeatureVector) (int, []float64, error)
		wantCode string
	}{
		{
			name:     "classifier error",
			predict:  func(domain.FeatureVector) (int, []float64, error) { return 0, nil, errors.New("boom") },
			wantCode: apperr.CodePredictionFailed,
		},
		{
			name: "feature mismatch",
			predict: func(domain.FeatureVector) (int, []float64, error) {
				return 0, nil, apperr.FeatureMismatch([]string{"https"}, nil, nil)
			},
			wantCode: apperr.CodeFeatureMismatch,
		},
		{
			name:     "short distribution",
			predict:  func(domain.FeatureVector) (int, []float64, error) { return 0, []float64{1}, nil },
			wantCode: apperr.CodePredictionFailed,
		},
		{
			name:     "panic",
			predict:  func(domain.FeatureVector) (int, []float64, error) { panic("corrupt tree") },
			wantCode: apperr.CodePredictionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRuleClassifier()
			c.predict = tt.predict
			svc := NewService(newFakeLoader(c), Config{})

			res := svc.SafeScan(context.Background(), "https://example.org")
			if res.OK() {
				t.Fatal("expected failure")
			}
			if res.Failure.Kind != domain.FailureAnalysisFailed {
				t.Errorf("kind = %s", res.Failure.Kind)
			}
			if res.Failure.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", res.Failure.Code, tt.wantCode)
			}
			if res.Failure.URL != "https://example.org" {
				t.Errorf("url = %s", res.Failure.URL)
			}
			if got := svc.Counters().Snapshot().Failures[string(domain.FailureAnalysisFailed)]; got != 1 {
				t.Errorf("failure counter = %d", got)
			}
		})
	}
}

func TestService_OneFailureDoesNotAffectOthers(t *testing.T) {
	c := newRuleClassifier()
	c.predict = func(vec domain.FeatureVector) (int, []float64, error) {
		if vec.Values[18] == 1 {
			panic("bad input")
		}
		return 0, []float64{1, 0, 0, 0}, nil
	}
	svc := NewService(newFakeLoader(c), Config{})

	if res := svc.SafeScan(context.Background(), "http://1.2.3.4/5.6.7.8"); res.OK() {
		t.Fatal("expected the first scan to fail")
	}
	if res := svc.SafeScan(context.Background(), "https://example.org"); !res.OK() {
		t.Errorf("second scan failed: %+v", res.Failure)
	}
}

func TestService_CancelledContext(t *testing.T) {
	svc := NewService(newFakeLoader(newRuleClassifier()), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Scan(ctx, "https://example.org"); !apperr.HasCode(err, apperr.CodeTimeout) {
		t.Errorf("Scan() = %v, want TIMEOUT", err)
	}
}

func TestService_ScanCountsFailures(t *testing.T) {
	loader := newFakeLoader(newRuleClassifier())
	loader.err = errors.New("file not found")
	svc := NewService(loader, Config{})

	if _, err := svc.Scan(context.Background(), "https://example.org"); err == nil {
		t.Fatal("expected error")
	}
	if got := svc.Counters().Snapshot().Failures[string(domain.FailureModelUnavailable)]; got != 1 {
		t.Errorf("model_unavailable after Scan = %d, want 1", got)
	}

	svc.SafeScan(context.Background(), "https://example.org")
	if got := svc.Counters().Snapshot().Failures[string(domain.FailureModelUnavailable)]; got != 2 {
		t.Errorf("model_unavailable after SafeScan = %d, want 2", got)
	}

	ok := NewService(newFakeLoader(newRuleClassifier()), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ok.Scan(ctx, "https://example.org"); err == nil {
		t.Fatal("expected error")
	}
	if got := ok.Counters().Snapshot().Failures[string(domain.FailureAnalysisFailed)]; got != 1 {
		t.Errorf("analysis_failed after Scan = %d, want 1", got)
	}
}

func TestService_ModelInfo(t *testing.T) {
	svc := NewService(newFakeLoader(newRuleClassifier()), Config{})
	info, err := svc.ModelInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Trees != 1 || len(info.Classes) != 4 || len(info.FeatureNames) != domain.FeatureCount {
		t.Errorf("info = %+v", info)
	}
	if info.ModelPath != "fake/model.json" || info.LoadedAt.IsZero() {
		t.Errorf("info paths = %s loaded %v", info.ModelPath, info.LoadedAt)
	}
}
