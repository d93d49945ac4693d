package http

import (
	"context"
	"strings"
	"time"

	"scanner_server/core/domain"
	"scanner_server/core/port/in"
	"scanner_server/core/port/out"
	"scanner_server/core/service/scan"
	"scanner_server/pkg/apperr"
	"scanner_server/pkg/metrics"
	"scanner_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 100
	maxBatchCases      = 500
)

// StatsSource exposes the scan service's runtime counters.
type StatsSource interface {
	Latency() *metrics.LatencyRegistry
	Counters() *metrics.VerdictCounters
}

// ScanHandlerConfig wires the scan routes. Batch, Reports and Stats are optional.
type ScanHandlerConfig struct {
	Scanner      in.ScanService
	Batch        in.BatchService
	Reports      out.ReportRepository
	Stats        StatsSource
	BatchTimeout time.Duration
}

// ScanHandler handles URL scan, validation and model requests.
type ScanHandler struct {
	scanner      in.ScanService
	batch        in.BatchService
	reports      out.ReportRepository
	stats        StatsSource
	batchTimeout time.Duration
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(cfg ScanHandlerConfig) *ScanHandler {
	timeout := cfg.BatchTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ScanHandler{
		scanner:      cfg.Scanner,
		batch:        cfg.Batch,
		reports:      cfg.Reports,
		stats:        cfg.Stats,
		batchTimeout: timeout,
	}
}

// Register registers scan routes.
func (h *ScanHandler) Register(router fiber.Router) {
	router.Get("/scan", h.ScanQuery)
	router.Post("/scan", h.Scan)
	router.Post("/scan/batch", h.RunBatch)

	router.Get("/model", h.Model)
	router.Get("/metrics", h.Metrics)

	reports := router.Group("/reports")
	reports.Get("/", h.ListReports)
	reports.Get("/:id", h.GetReport)
}

// =============================================================================
// Scan
// =============================================================================

// ScanRequest is the body of POST /scan.
type ScanRequest struct {
	URL string `json:"url"`
}

// Scan classifies the URL in the request body.
func (h *ScanHandler) Scan(c *fiber.Ctx) error {
	var req ScanRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body").WithError(err)
	}
	return h.scan(c, req.URL)
}

// ScanQuery classifies the URL in the "url" query parameter.
func (h *ScanHandler) ScanQuery(c *fiber.Ctx) error {
	return h.scan(c, c.Query("url"))
}

func (h *ScanHandler) scan(c *fiber.Ctx, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return apperr.InvalidInput("url", "must not be empty")
	}

	verdict, err := h.scanner.Scan(c.UserContext(), rawURL)
	if err != nil {
		return err
	}

	return response.OK(c, response.SelectFields(c, verdict))
}

// =============================================================================
// Validation harness
// =============================================================================

// BatchRequest is the body of POST /scan/batch. An empty case list runs the
// built-in validation set.
type BatchRequest struct {
	Cases []domain.BatchCase `json:"cases"`
}

// RunBatch runs a validation batch and returns its report.
func (h *ScanHandler) RunBatch(c *fiber.Ctx) error {
	if h.batch == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Batch runner not available")
	}

	var req BatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.BadRequest("invalid request body").WithError(err)
		}
	}

	cases := req.Cases
	if len(cases) == 0 {
		cases = scan.DefaultBatchCases()
	}
	if len(cases) > maxBatchCases {
		return apperr.InvalidInput("cases", "too many cases").WithDetail("max", maxBatchCases)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.batchTimeout)
	defer cancel()

	report, err := h.batch.Run(ctx, cases)
	if err != nil {
		return err
	}

	return response.OK(c, report)
}

// ListReports returns the most recent validation reports.
func (h *ScanHandler) ListReports(c *fiber.Ctx) error {
	if h.reports == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Report store not available")
	}

	limit := response.Limit(c, defaultReportLimit, maxReportLimit)
	reports, err := h.reports.ListRecent(c.UserContext(), limit)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, reports, &response.Meta{Total: len(reports), Limit: limit})
}

// GetReport returns a single validation report.
func (h *ScanHandler) GetReport(c *fiber.Ctx) error {
	if h.reports == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Report store not available")
	}

	report, err := h.reports.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	return response.OK(c, report)
}

// =============================================================================
// Model & metrics
// =============================================================================

// Model returns the loaded model's schema.
func (h *ScanHandler) Model(c *fiber.Ctx) error {
	info, err := h.scanner.ModelInfo()
	if err != nil {
		return err
	}
	return response.OK(c, info)
}

// Metrics returns per-stage latency and verdict counters.
func (h *ScanHandler) Metrics(c *fiber.Ctx) error {
	if h.stats == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Metrics not available")
	}

	latency := make(map[string]any)
	for stage, stats := range h.stats.Latency().AllStats() {
		latency[stage] = stats.ToMap()
	}

	return response.OK(c, fiber.Map{
		"latency":  latency,
		"counters": h.stats.Counters().Snapshot(),
	})
}
