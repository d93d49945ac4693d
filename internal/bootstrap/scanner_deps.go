package bootstrap

import (
	"context"
	"time"

	"scanner_server/adapter/out/model"
	"scanner_server/adapter/out/mongodb"
	"scanner_server/adapter/out/report"
	"scanner_server/config"
	"scanner_server/core/port/out"
	"scanner_server/core/service/scan"
	"scanner_server/infra/database"
	"scanner_server/pkg/logger"
	"scanner_server/pkg/ratelimit"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	Redis   *redis.Client
	MongoDB *mongo.Client

	Scanner     *scan.Service
	Batch       *scan.BatchRunner
	Reports     out.ReportRepository
	FileReports *report.FileRepository
	Limiter     ratelimit.Limiter
}

// NewDependencies wires the scan pipeline and its optional stores.
// Redis and MongoDB are optional; a failed connection is logged and skipped.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Trust list
	trustList := scan.DefaultTrustList()
	confidence := cfg.TrustOverrideConfidence
	if cfg.TrustListFile != "" {
		f, err := config.LoadTrustList(cfg.TrustListFile)
		if err != nil {
			return nil, nil, err
		}
		trustList = scan.NewTrustList(f.Domains)
		if f.Confidence > 0 {
			confidence = f.Confidence
		}
		logger.Info("Trust list loaded from %s (%d domains)", cfg.TrustListFile, trustList.Len())
	}

	// Scan service
	deps.Scanner = scan.NewService(
		model.NewFileLoader(cfg.ModelPath, cfg.LabelsPath),
		scan.Config{
			TrustList:          trustList,
			OverrideConfidence: confidence,
		},
	)

	// Report stores
	fileReports, err := report.NewFileRepository(cfg.ReportDir)
	if err != nil {
		return nil, nil, err
	}
	deps.FileReports = fileReports

	var mongoReports out.ReportRepository
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = mongoClient.Disconnect(ctx)
			})

			adapter := mongodb.NewReportAdapter(mongoClient.Database(cfg.MongoDBName))
			if err := adapter.EnsureIndexes(ctx); err != nil {
				logger.Warn("MongoDB index creation failed: %v", err)
			}
			mongoReports = adapter
			logger.Info("MongoDB report store initialized (%s)", cfg.MongoDBName)
		}
	}
	if mongoReports != nil {
		deps.Reports = report.NewMultiRepository(mongoReports, fileReports)
	} else {
		deps.Reports = fileReports
	}

	deps.Batch = scan.NewBatchRunner(deps.Scanner, deps.Reports, cfg.BatchWorkers)

	// Rate limiting
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed, using in-memory rate limit: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { _ = redisClient.Close() })
			deps.Limiter = ratelimit.NewSlidingWindowLimiter(redisClient, cfg.RateLimitPerMin, time.Minute)
		}
	}
	if deps.Limiter == nil {
		memLimiter := ratelimit.NewFixedWindowLimiter(cfg.RateLimitPerMin, time.Minute)
		cleanups = append(cleanups, memLimiter.Close)
		deps.Limiter = memLimiter
	}

	return deps, cleanup, nil
}
