package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"scanner_server/core/domain"
	"scanner_server/pkg/apperr"
	"scanner_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Batch Report Adapter
// =============================================================================

const (
	collectionReports = "batch_reports"

	// Results larger than this are gzip-compressed.
	reportCompressionThreshold = 512
)

// ReportAdapter implements out.ReportRepository using MongoDB. Calls go
// through a circuit breaker so an unavailable database fails fast.
type ReportAdapter struct {
	collection *mongo.Collection
	cb         *gobreaker.CircuitBreaker
}

// NewReportAdapter creates a new MongoDB report adapter.
func NewReportAdapter(db *mongo.Database) *ReportAdapter {
	cbSettings := gobreaker.Settings{
		Name:        "mongodb-reports",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &ReportAdapter{
		collection: db.Collection(collectionReports),
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *ReportAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "generated_at", Value: -1}}},
		{Keys: bson.D{{Key: "summary.accuracy", Value: 1}}},
	}
	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

type reportDocument struct {
	ID          string              `bson:"_id"`
	GeneratedAt time.Time           `bson:"generated_at"`
	Summary     domain.BatchSummary `bson:"summary"`

	// Results as JSON, possibly gzip-compressed.
	Results      []byte `bson:"results"`
	IsCompressed bool   `bson:"is_compressed"`
	OriginalSize int64  `bson:"original_size"`
}

// =============================================================================
// Operations
// =============================================================================

// Save upserts a report.
func (a *ReportAdapter) Save(ctx context.Context, report *domain.BatchReport) error {
	doc, err := toDocument(report)
	if err != nil {
		return fmt.Errorf("failed to convert report to document: %w", err)
	}

	_, err = a.execute(func() (interface{}, error) {
		opts := options.Replace().SetUpsert(true)
		return a.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	})
	if err != nil {
		return apperr.DatabaseError("save batch report", err)
	}
	return nil
}

// GetByID retrieves a report by ID.
func (a *ReportAdapter) GetByID(ctx context.Context, id string) (*domain.BatchReport, error) {
	var doc reportDocument
	_, err := a.execute(func() (interface{}, error) {
		return nil, a.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("report")
		}
		return nil, apperr.DatabaseError("get batch report", err)
	}
	return fromDocument(&doc)
}

// ListRecent returns the newest reports first.
func (a *ReportAdapter) ListRecent(ctx context.Context, limit int) ([]*domain.BatchReport, error) {
	if limit <= 0 {
		limit = 20
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit))

	var docs []reportDocument
	_, err := a.execute(func() (interface{}, error) {
		cursor, err := a.collection.Find(ctx, bson.M{}, findOpts)
		if err != nil {
			return nil, err
		}
		return nil, cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, apperr.DatabaseError("list batch reports", err)
	}

	reports := make([]*domain.BatchReport, 0, len(docs))
	for i := range docs {
		r, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// execute runs fn through the breaker. A missing document is a normal
// answer and must not count as a failure.
func (a *ReportAdapter) execute(fn func() (interface{}, error)) (interface{}, error) {
	var notFound bool
	res, err := a.cb.Execute(func() (interface{}, error) {
		res, err := fn()
		if errors.Is(err, mongo.ErrNoDocuments) {
			notFound = true
			return res, nil
		}
		return res, err
	})
	if notFound {
		return nil, mongo.ErrNoDocuments
	}
	return res, err
}

// =============================================================================
// Conversion
// =============================================================================

func toDocument(report *domain.BatchReport) (*reportDocument, error) {
	data, err := json.Marshal(report.Results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}

	doc := &reportDocument{
		ID:           report.ID,
		GeneratedAt:  report.GeneratedAt,
		Summary:      report.Summary,
		Results:      data,
		OriginalSize: int64(len(data)),
	}
	if len(data) > reportCompressionThreshold {
		compressed, err := compress(data)
		if err != nil {
			return nil, fmt.Errorf("failed to compress results: %w", err)
		}
		doc.Results = compressed
		doc.IsCompressed = true
	}
	return doc, nil
}

func fromDocument(doc *reportDocument) (*domain.BatchReport, error) {
	data := doc.Results
	if doc.IsCompressed {
		var err error
		if data, err = decompress(data); err != nil {
			return nil, fmt.Errorf("failed to decompress results: %w", err)
		}
	}

	report := &domain.BatchReport{
		ID:          doc.ID,
		GeneratedAt: doc.GeneratedAt,
		Summary:     doc.Summary,
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &report.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}
	return report, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
