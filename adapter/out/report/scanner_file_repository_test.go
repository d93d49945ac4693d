package report

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"scanner_server/core/domain"
	"scanner_server/pkg/apperr"
)

func newReport(id string, at time.Time) *domain.BatchReport {
	return &domain.BatchReport{
		ID:          id,
		GeneratedAt: at,
		Results: []domain.BatchCaseResult{
			{URL: "https://www.google.com", Expect: "benign", Label: "benign", Correct: true},
		},
		Summary: domain.BatchSummary{Total: 1, Correct: 1, Accuracy: 100},
	}
}

func TestFileRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := newReport("aaa", base)
	newer := newReport("bbb", base.Add(time.Minute))
	for _, r := range []*domain.BatchReport{older, newer} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	if _, err := os.Stat(repo.Path(newer)); err != nil {
		t.Errorf("report file missing: %v", err)
	}

	got, err := repo.GetByID(ctx, "aaa")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Summary.Accuracy != 100 || len(got.Results) != 1 {
		t.Errorf("GetByID() = %+v", got)
	}

	if _, err := repo.GetByID(ctx, "zzz"); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("missing report error = %v", err)
	}

	list, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "bbb" {
		t.Errorf("ListRecent() order wrong: %d reports", len(list))
	}
	if list, _ := repo.ListRecent(ctx, 1); len(list) != 1 {
		t.Errorf("limit not applied: %d", len(list))
	}
}

type failingRepo struct{}

func (failingRepo) Save(context.Context, *domain.BatchReport) error { return errors.New("down") }
func (failingRepo) GetByID(context.Context, string) (*domain.BatchReport, error) {
	return nil, errors.New("down")
}
func (failingRepo) ListRecent(context.Context, int) ([]*domain.BatchReport, error) {
	return nil, errors.New("down")
}

func TestMultiRepository(t *testing.T) {
	ctx := context.Background()
	files, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	multi := NewMultiRepository(failingRepo{}, nil, files)

	r := newReport("ccc", time.Now())
	if err := multi.Save(ctx, r); err == nil {
		t.Error("Save() should report the failing repository")
	}
	got, err := multi.GetByID(ctx, "ccc")
	if err != nil || got.ID != "ccc" {
		t.Errorf("GetByID() = %v, %v", got, err)
	}
	list, err := multi.ListRecent(ctx, 5)
	if err != nil || len(list) != 1 {
		t.Errorf("ListRecent() = %d, %v", len(list), err)
	}
}
