package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scanner_server/core/domain"
	"scanner_server/pkg/apperr"
)

type memReports struct {
	mu      sync.Mutex
	saved   []*domain.BatchReport
	failErr error
}

func (m *memReports) Save(_ context.Context, r *domain.BatchReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *memReports) GetByID(_ context.Context, id string) (*domain.BatchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperr.NotFound("report")
}

func (m *memReports) ListRecent(_ context.Context, limit int) ([]*domain.BatchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func TestBatchCase_Matches(t *testing.T) {
	tests := []struct {
		expect string
		label  string
		want   bool
	}{
		{"benign", "benign", true},
		{"benign", "phishing", false},
		{"malicious", "phishing", true},
		{"malicious", "malware", true},
		{"malicious", "benign", false},
		{"Malicious", "defacement", true},
		{"phishing", "phishing", true},
		{"phishing", "malware", false},
	}
	for _, tt := range tests {
		c := domain.BatchCase{URL: "u", Expect: tt.expect}
		if got := c.Matches(tt.label); got != tt.want {
			t.Errorf("Matches(expect=%s, label=%s) = %v, want %v", tt.expect, tt.label, got, tt.want)
		}
	}
}

func TestBatchRunner_Run(t *testing.T) {
	svc := NewService(newFakeLoader(newRuleClassifier()), Config{})
	reports := &memReports{}
	runner := NewBatchRunner(svc, reports, 3)

	report, err := runner.Run(context.Background(), DefaultBatchCases())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Results) != 8 {
		t.Fatalf("results = %d, want 8", len(report.Results))
	}
	for i, c := range DefaultBatchCases() {
		if report.Results[i].URL != c.URL {
			t.Errorf("result %d url = %s, want %s (order must follow input)", i, report.Results[i].URL, c.URL)
		}
	}

	// The rule classifier misses the shortener case only.
	s := report.Summary
	if s.Total != 8 || s.Correct != 7 || s.Failed != 0 {
		t.Errorf("summary = %+v", s)
	}
	if s.Accuracy != 87.5 {
		t.Errorf("accuracy = %v, want 87.5", s.Accuracy)
	}
	if s.MinMs > s.AvgMs || s.AvgMs > s.MaxMs {
		t.Errorf("timing out of order: min %v avg %v max %v", s.MinMs, s.AvgMs, s.MaxMs)
	}

	if len(reports.saved) != 1 || reports.saved[0].ID != report.ID {
		t.Errorf("report not saved: %d saved", len(reports.saved))
	}
}

func TestBatchRunner_SaveFailureIsNotFatal(t *testing.T) {
	svc := NewService(newFakeLoader(newRuleClassifier()), Config{})
	runner := NewBatchRunner(svc, &memReports{failErr: errors.New("disk full")}, 2)

	if _, err := runner.Run(context.Background(), DefaultBatchCases()[:2]); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestBatchRunner_ModelUnavailable(t *testing.T) {
	loader := newFakeLoader(newRuleClassifier())
	loader.err = errors.New("missing")
	runner := NewBatchRunner(NewService(loader, Config{}), nil, 4)

	report, err := runner.Run(context.Background(), DefaultBatchCases())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Summary.Failed != 8 || report.Summary.Correct != 0 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Results[0].Error == "" {
		t.Error("failed case must carry an error message")
	}
}

func TestBatchRunner_InvalidInput(t *testing.T) {
	runner := NewBatchRunner(NewService(newFakeLoader(newRuleClassifier()), Config{}), nil, 1)

	if _, err := runner.Run(context.Background(), nil); !apperr.HasCode(err, apperr.CodeInvalidInput) {
		t.Errorf("empty cases: %v", err)
	}
	if _, err := runner.Run(context.Background(), []domain.BatchCase{{URL: "", Expect: "benign"}}); !apperr.HasCode(err, apperr.CodeInvalidInput) {
		t.Errorf("empty url: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	results := []domain.BatchCaseResult{
		{Correct: true, ElapsedMs: 2},
		{Correct: false, ElapsedMs: 4},
		{Correct: true, ElapsedMs: 6, Error: ""},
		{Correct: false, ElapsedMs: 8, Error: "could not analyze this URL"},
	}
	s := Summarize(results, 2*time.Second)

	if s.Total != 4 || s.Correct != 2 || s.Failed != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.Accuracy != 50 || s.AvgMs != 5 || s.MinMs != 2 || s.MaxMs != 8 {
		t.Errorf("stats = %+v", s)
	}
	if s.TotalMs != 2000 || s.URLsPerSecond != 2 {
		t.Errorf("throughput = %v ms, %v/s", s.TotalMs, s.URLsPerSecond)
	}

	if empty := Summarize(nil, 0); empty.Total != 0 || empty.MinMs != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}
