package scan

import (
	"context"
	"fmt"
	"math"
	"time"

	"scanner_server/core/domain"
	"scanner_server/core/port/in"
	"scanner_server/core/port/out"
	"scanner_server/pkg/apperr"
	"scanner_server/pkg/logger"

	"github.com/go-pkgz/pool"
	"github.com/google/uuid"
)

// DefaultBatchCases is the built-in validation set.
func DefaultBatchCases() []domain.BatchCase {
	return []domain.BatchCase{
		{URL: "https://www.google.com", Expect: domain.ExpectBenign},
		{URL: "https://github.com", Expect: domain.ExpectBenign},
		{URL: "https://www.wikipedia.org", Expect: domain.ExpectBenign},
		{URL: "https://www.microsoft.com", Expect: domain.ExpectBenign},
		{URL: "http://bit.ly/suspicious123", Expect: domain.ExpectMalicious},
		{URL: "http://192.168.1.1/login", Expect: domain.ExpectMalicious},
		{URL: "http://example-paypal-login.com", Expect: domain.ExpectMalicious},
		{URL: "http://free-lucky-bonus.com/win", Expect: domain.ExpectMalicious},
	}
}

// =============================================================================
// Batch Runner
// =============================================================================

// BatchRunner scans a list of cases concurrently and summarizes accuracy
// and timing. It is a validation harness, not a streaming pipeline.
type BatchRunner struct {
	scanner in.ScanService
	reports out.ReportRepository
	workers int
	log     *logger.Logger
}

// NewBatchRunner creates a runner. reports may be nil.
func NewBatchRunner(scanner in.ScanService, reports out.ReportRepository, workers int) *BatchRunner {
	if workers <= 0 {
		workers = 4
	}
	return &BatchRunner{
		scanner: scanner,
		reports: reports,
		workers: workers,
		log:     logger.WithField("component", "batch_runner"),
	}
}

type batchJob struct {
	index int
	c     domain.BatchCase
}

// caseWorker implements pool.Worker for one batch run.
type caseWorker struct {
	scanner in.ScanService
	results []domain.BatchCaseResult
}

// Do scans one case. Each job writes only its own slot in results.
func (w *caseWorker) Do(ctx context.Context, job batchJob) error {
	w.results[job.index] = runCase(ctx, w.scanner, job.c)
	return nil
}

func runCase(ctx context.Context, scanner in.ScanService, c domain.BatchCase) domain.BatchCaseResult {
	start := time.Now()
	res := scanner.SafeScan(ctx, c.URL)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	r := domain.BatchCaseResult{URL: c.URL, Expect: c.Expect, ElapsedMs: elapsed}
	if !res.OK() {
		if res != nil && res.Failure != nil {
			r.Error = res.Failure.Message
			if res.Failure.Detail != "" {
				r.Error = fmt.Sprintf("%s: %s", res.Failure.Message, res.Failure.Detail)
			}
		}
		return r
	}

	v := res.Verdict
	r.RawLabel = v.RawLabel
	r.Label = v.FinalLabel
	r.Confidence = v.FinalConfidence
	r.RiskTier = v.RiskTier
	r.Overridden = v.Overridden
	r.Correct = c.Matches(v.FinalLabel)
	return r
}

// Run scans every case and returns the report. When a report repository is
// configured the report is saved; a save failure is logged, not returned.
func (r *BatchRunner) Run(ctx context.Context, cases []domain.BatchCase) (*domain.BatchReport, error) {
	if len(cases) == 0 {
		return nil, apperr.InvalidInput("cases", "at least one case is required")
	}
	for i, c := range cases {
		if c.URL == "" {
			return nil, apperr.InvalidInput("cases", fmt.Sprintf("case %d has an empty url", i))
		}
	}

	results := make([]domain.BatchCaseResult, len(cases))
	worker := &caseWorker{scanner: r.scanner, results: results}

	workers := r.workers
	if workers > len(cases) {
		workers = len(cases)
	}

	start := time.Now()
	wg := pool.New[batchJob](workers, worker).WithContinueOnError()
	if err := wg.Go(ctx); err != nil {
		return nil, apperr.InternalWithError(fmt.Errorf("start batch pool: %w", err))
	}
	for i, c := range cases {
		wg.Submit(batchJob{index: i, c: c})
	}
	if err := wg.Close(ctx); err != nil {
		return nil, apperr.InternalWithError(fmt.Errorf("batch pool: %w", err))
	}
	wall := time.Since(start)

	report := &domain.BatchReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Results:     results,
		Summary:     Summarize(results, wall),
	}

	r.log.WithContext(ctx).WithDuration(wall).WithFields(map[string]any{
		"report_id": report.ID,
		"total":     report.Summary.Total,
		"correct":   report.Summary.Correct,
		"accuracy":  report.Summary.Accuracy,
	}).Info("batch run completed")

	if r.reports != nil {
		if err := r.reports.Save(ctx, report); err != nil {
			r.log.WithError(err).WithField("report_id", report.ID).Warn("failed to save batch report")
		}
	}

	return report, nil
}

// Summarize computes accuracy (percent) and timing statistics. wall is the
// elapsed time of the whole run and drives throughput.
func Summarize(results []domain.BatchCaseResult, wall time.Duration) domain.BatchSummary {
	s := domain.BatchSummary{Total: len(results)}
	if len(results) == 0 {
		return s
	}

	var sum float64
	s.MinMs = math.MaxFloat64
	for _, r := range results {
		if r.Correct {
			s.Correct++
		}
		if r.Error != "" {
			s.Failed++
		}
		sum += r.ElapsedMs
		s.MinMs = math.Min(s.MinMs, r.ElapsedMs)
		s.MaxMs = math.Max(s.MaxMs, r.ElapsedMs)
	}

	s.Accuracy = float64(s.Correct) / float64(s.Total) * 100
	s.AvgMs = sum / float64(s.Total)
	s.TotalMs = float64(wall.Microseconds()) / 1000
	if secs := wall.Seconds(); secs > 0 {
		s.URLsPerSecond = float64(s.Total) / secs
	}
	return s
}
