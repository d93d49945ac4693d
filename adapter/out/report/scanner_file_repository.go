// Package report stores batch validation reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"scanner_server/core/domain"
	"scanner_server/core/port/out"
	"scanner_server/pkg/apperr"

	"github.com/goccy/go-json"
)

const filePrefix = "batch_report_"

// FileRepository writes one indented JSON file per report.
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileRepository creates the directory if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir %s: %w", dir, err)
	}
	return &FileRepository{dir: dir}, nil
}

// Dir returns the report directory.
func (r *FileRepository) Dir() string {
	return r.dir
}

// fileName sorts lexically by generation time.
func fileName(report *domain.BatchReport) string {
	return fmt.Sprintf("%s%s_%s.json", filePrefix, report.GeneratedAt.UTC().Format("20060102T150405.000Z"), report.ID)
}

// Path returns where report is (or would be) written.
func (r *FileRepository) Path(report *domain.BatchReport) string {
	return filepath.Join(r.dir, fileName(report))
}

// Save implements out.ReportRepository.
func (r *FileRepository) Save(_ context.Context, report *domain.BatchReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.Path(report)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// GetByID implements out.ReportRepository.
func (r *FileRepository) GetByID(_ context.Context, id string) (*domain.BatchReport, error) {
	names, err := r.list()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if strings.HasSuffix(name, "_"+id+".json") {
			return r.read(name)
		}
	}
	return nil, apperr.NotFound("report")
}

// ListRecent implements out.ReportRepository.
func (r *FileRepository) ListRecent(_ context.Context, limit int) ([]*domain.BatchReport, error) {
	names, err := r.list()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	reports := make([]*domain.BatchReport, 0, len(names))
	for _, name := range names {
		rep, err := r.read(name)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// list returns report file names, newest first.
func (r *FileRepository) list() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read report dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (r *FileRepository) read(name string) (*domain.BatchReport, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep domain.BatchReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", name, err)
	}
	return &rep, nil
}

// =============================================================================
// Fan-out
// =============================================================================

// MultiRepository saves to every repository and reads from the first one
// that has the report.
type MultiRepository struct {
	repos []out.ReportRepository
}

// NewMultiRepository skips nil repositories.
func NewMultiRepository(repos ...out.ReportRepository) *MultiRepository {
	m := &MultiRepository{}
	for _, r := range repos {
		if r != nil {
			m.repos = append(m.repos, r)
		}
	}
	return m
}

// Save writes to all repositories and joins their errors.
func (m *MultiRepository) Save(ctx context.Context, report *domain.BatchReport) error {
	var errs []error
	for _, r := range m.repos {
		if err := r.Save(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetByID returns the first hit.
func (m *MultiRepository) GetByID(ctx context.Context, id string) (*domain.BatchReport, error) {
	var lastErr error = apperr.NotFound("report")
	for _, r := range m.repos {
		rep, err := r.GetByID(ctx, id)
		if err == nil {
			return rep, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ListRecent reads from the first repository that answers.
func (m *MultiRepository) ListRecent(ctx context.Context, limit int) ([]*domain.BatchReport, error) {
	var lastErr error
	for _, r := range m.repos {
		reps, err := r.ListRecent(ctx, limit)
		if err == nil {
			return reps, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
