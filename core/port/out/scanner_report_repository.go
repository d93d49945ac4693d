package out

import (
	"context"

	"scanner_server/core/domain"
)

// ReportRepository stores validation-run reports.
type ReportRepository interface {
	Save(ctx context.Context, report *domain.BatchReport) error
	GetByID(ctx context.Context, id string) (*domain.BatchReport, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.BatchReport, error)
}
