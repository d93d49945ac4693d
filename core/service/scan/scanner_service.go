package scan

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"scanner_server/core/domain"
	"scanner_server/core/port/out"
	"scanner_server/pkg/apperr"
	"scanner_server/pkg/logger"
	"scanner_server/pkg/metrics"
)

// Config tunes a Service. Zero values select defaults.
type Config struct {
	TrustList          *TrustList
	OverrideConfidence float64
	Extractor          *Extractor
	Latency            *metrics.LatencyRegistry
	Counters           *metrics.VerdictCounters
	Logger             *logger.Logger
}

// Service runs the scan pipeline. The model artifact is loaded at most once,
// on Warmup or on the first scan, and is read-only afterwards.
type Service struct {
	loader    out.ArtifactLoader
	extractor *Extractor
	override  *TrustOverride
	latency   *metrics.LatencyRegistry
	counters  *metrics.VerdictCounters
	log       *logger.Logger

	once      sync.Once
	ready     atomic.Bool
	artifact  *out.Artifact
	assembler *Assembler
	loadErr   error
	loadedAt  time.Time
}

// NewService creates a scan service. Nothing is loaded until Warmup or Scan.
func NewService(loader out.ArtifactLoader, cfg Config) *Service {
	if cfg.Extractor == nil {
		cfg.Extractor = NewExtractor()
	}
	if cfg.Latency == nil {
		cfg.Latency = metrics.NewLatencyRegistry(1000)
	}
	if cfg.Counters == nil {
		cfg.Counters = metrics.NewVerdictCounters()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &Service{
		loader:    loader,
		extractor: cfg.Extractor,
		override:  NewTrustOverride(cfg.TrustList, cfg.OverrideConfidence),
		latency:   cfg.Latency,
		counters:  cfg.Counters,
		log:       cfg.Logger.WithField("component", "scan_service"),
	}
}

// Warmup loads the artifact. A failed load is cached and returned on every call.
func (s *Service) Warmup() error {
	return s.load()
}

// Ready reports whether the artifact has been loaded successfully.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

func (s *Service) load() error {
	s.once.Do(func() {
		start := time.Now()
		modelPath, labelsPath := s.loader.Paths()

		art, err := s.loader.Load()
		if err == nil {
			err = checkArtifact(art, modelPath)
		}
		if err != nil {
			if !apperr.HasCode(err, apperr.CodeArtifactLoadFailed) {
				err = apperr.ArtifactLoadFailed(modelPath, err)
			}
			s.loadErr = err
			s.log.WithError(err).Error("model artifact load failed")
			return
		}

		s.artifact = art
		s.assembler = NewAssembler(art.Decoder, s.override)
		s.loadedAt = time.Now().UTC()
		s.ready.Store(true)

		d := s.latency.Since(metrics.StageLoad, start)
		s.log.WithDuration(d).WithFields(map[string]any{
			"model_path":  modelPath,
			"labels_path": labelsPath,
			"trees":       art.Classifier.NumTrees(),
			"classes":     art.Decoder.Classes(),
		}).Info("model artifact loaded")
	})
	return s.loadErr
}

// checkArtifact verifies the classifier and decoder agree with each other and
// with the features this build extracts.
func checkArtifact(art *out.Artifact, modelPath string) error {
	if art == nil || art.Classifier == nil || art.Decoder == nil {
		return apperr.ArtifactLoadFailed(modelPath, fmt.Errorf("incomplete artifact"))
	}
	if n, m := art.Classifier.NumClasses(), art.Decoder.Len(); n != m {
		return apperr.ArtifactLoadFailed(modelPath,
			fmt.Errorf("classifier has %d classes, label decoder has %d", n, m))
	}
	if d := domain.DiffSchema(art.Classifier.FeatureNames(), domain.FeatureNames[:]); !d.Empty() {
		return apperr.ArtifactLoadFailed(modelPath,
			apperr.FeatureMismatch(d.Missing, d.Unexpected, d.OutOfOrder))
	}
	return nil
}

// Scan classifies rawURL.
func (s *Service) Scan(ctx context.Context, rawURL string) (*domain.Verdict, error) {
	verdict, err := s.scan(ctx, rawURL)
	if err != nil {
		s.counters.Failure(string(failureKind(err)))
	}
	return verdict, err
}

func (s *Service) scan(ctx context.Context, rawURL string) (*domain.Verdict, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Timeout("scan").WithError(err)
	}

	start := time.Now()

	features := s.extractor.Extract(rawURL)
	s.latency.Since(metrics.StageExtract, start)

	predictStart := time.Now()
	classIndex, probabilities, err := s.artifact.Classifier.Predict(features.Vector())
	s.latency.Since(metrics.StagePredict, predictStart)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, apperr.PredictionFailed(rawURL, err)
	}

	assembleStart := time.Now()
	verdict, err := s.assembler.Assemble(rawURL, features, classIndex, probabilities)
	s.latency.Since(metrics.StageAssemble, assembleStart)
	if err != nil {
		return nil, err
	}

	d := s.latency.Since(metrics.StageScan, start)
	s.counters.Verdict(verdict.FinalLabel, verdict.Overridden)
	s.log.WithContext(ctx).WithDuration(d).WithFields(map[string]any{
		"url":         rawURL,
		"raw_label":   verdict.RawLabel,
		"final_label": verdict.FinalLabel,
		"overridden":  verdict.Overridden,
	}).Debug("url scanned")

	return verdict, nil
}

// SafeScan is the scan boundary: it never returns an error and never panics.
func (s *Service) SafeScan(ctx context.Context, rawURL string) (result *domain.ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("url", rawURL).Error("panic during scan: %v", r)
			err := apperr.PredictionFailed(rawURL, fmt.Errorf("panic: %v", r))
			s.counters.Failure(string(failureKind(err)))
			result = s.failure(rawURL, err)
		}
	}()

	verdict, err := s.Scan(ctx, rawURL)
	if err != nil {
		return s.failure(rawURL, err)
	}
	return &domain.ScanResult{Verdict: verdict}
}

// failure builds the ScanFailure for err. Counting is left to the caller.
func (s *Service) failure(rawURL string, err error) *domain.ScanResult {
	f := &domain.ScanFailure{
		Kind:    failureKind(err),
		Code:    apperr.AsAppError(err).Code,
		Message: "could not analyze this URL",
		Detail:  err.Error(),
		URL:     rawURL,
	}
	if f.Kind == domain.FailureModelUnavailable {
		f.Code = apperr.CodeArtifactLoadFailed
		f.Message = "could not load models"
	}
	return &domain.ScanResult{Failure: f}
}

func failureKind(err error) domain.ScanFailureKind {
	if apperr.HasCode(err, apperr.CodeArtifactLoadFailed) {
		return domain.FailureModelUnavailable
	}
	return domain.FailureAnalysisFailed
}

// ModelInfo describes the loaded artifact, loading it if needed.
func (s *Service) ModelInfo() (*domain.ModelInfo, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	modelPath, labelsPath := s.loader.Paths()
	c := s.artifact.Classifier
	return &domain.ModelInfo{
		ModelType:    c.ModelType(),
		FeatureNames: append([]string(nil), c.FeatureNames()...),
		Classes:      append([]string(nil), s.artifact.Decoder.Classes()...),
		Trees:        c.NumTrees(),
		ModelPath:    modelPath,
		LabelsPath:   labelsPath,
		LoadedAt:     s.loadedAt,
	}, nil
}

// Latency exposes the per-stage latency registry.
func (s *Service) Latency() *metrics.LatencyRegistry {
	return s.latency
}

// Counters exposes the verdict counters.
func (s *Service) Counters() *metrics.VerdictCounters {
	return s.counters
}

// Extractor returns the feature extractor.
func (s *Service) Extractor() *Extractor {
	return s.extractor
}
