package in

import (
	"context"

	"scanner_server/core/domain"
)

type ScanService interface {
	// Scan classifies a single URL. Errors are *apperr.AppError.
	Scan(ctx context.Context, rawURL string) (*domain.Verdict, error)
	// SafeScan never fails; errors and panics become a ScanFailure.
	SafeScan(ctx context.Context, rawURL string) *domain.ScanResult
	Warmup() error
	Ready() bool
	ModelInfo() (*domain.ModelInfo, error)
}

type BatchService interface {
	Run(ctx context.Context, cases []domain.BatchCase) (*domain.BatchReport, error)
}
