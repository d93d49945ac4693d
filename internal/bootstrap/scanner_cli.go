package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"scanner_server/config"
	"scanner_server/core/domain"
	"scanner_server/core/service/scan"
	"scanner_server/pkg/apperr"

	"github.com/goccy/go-json"
)

// RunScan scans one URL and writes the result as JSON. A failed scan is
// written as a ScanFailure and also returned as an error.
func RunScan(ctx context.Context, deps *Dependencies, rawURL string, w io.Writer) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return apperr.InvalidInput("url", "must not be empty")
	}

	result := deps.Scanner.SafeScan(ctx, rawURL)
	if err := writeJSON(w, result); err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("scan failed: %s", result.Failure.Message)
	}
	return nil
}

// RunBatch runs the validation harness over casesFile, or the built-in
// cases when casesFile is empty, and writes a summary.
func RunBatch(ctx context.Context, deps *Dependencies, casesFile string, w io.Writer) (*domain.BatchReport, error) {
	cases := scan.DefaultBatchCases()
	if casesFile != "" {
		loaded, err := config.LoadBatchCases(casesFile)
		if err != nil {
			return nil, err
		}
		cases = loaded
	}

	if err := deps.Scanner.Warmup(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, deps.Config.BatchTimeout)
	defer cancel()

	report, err := deps.Batch.Run(ctx, cases)
	if err != nil {
		return nil, err
	}

	writeBatchSummary(w, report)
	fmt.Fprintf(w, "report: %s\n", deps.FileReports.Path(report))
	return report, nil
}

// RunSchema writes the loaded model's schema as JSON.
func RunSchema(deps *Dependencies, w io.Writer) error {
	info, err := deps.Scanner.ModelInfo()
	if err != nil {
		return err
	}
	return writeJSON(w, info)
}

func writeBatchSummary(w io.Writer, report *domain.BatchReport) {
	for _, r := range report.Results {
		mark := "PASS"
		if !r.Correct {
			mark = "FAIL"
		}
		if r.Error != "" {
			fmt.Fprintf(w, "[%s] %-50s error: %s\n", mark, r.URL, r.Error)
			continue
		}
		override := ""
		if r.Overridden {
			override = fmt.Sprintf(" (override from %s)", r.RawLabel)
		}
		fmt.Fprintf(w, "[%s] %-50s %-10s %6.2f%% %-8s%s\n",
			mark, r.URL, r.Label, r.Confidence, r.RiskTier, override)
	}

	s := report.Summary
	fmt.Fprintf(w, "\naccuracy: %d/%d (%.1f%%), failed: %d\n", s.Correct, s.Total, s.Accuracy, s.Failed)
	fmt.Fprintf(w, "latency: avg %.2fms, min %.2fms, max %.2fms, %.1f urls/s\n",
		s.AvgMs, s.MinMs, s.MaxMs, s.URLsPerSecond)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
