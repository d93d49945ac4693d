package bootstrap

import (
	"context"
	"strings"

	"scanner_server/adapter/in/http"
	"scanner_server/config"
	"scanner_server/infra/middleware"
	"scanner_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI builds the HTTP server. With EagerLoad the model is loaded before
// the server is returned and a load failure aborts startup.
func NewAPI(ctx context.Context, cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	if cfg.EagerLoad {
		if err := deps.Scanner.Warmup(); err != nil {
			cleanup()
			return nil, nil, err
		}
		info, _ := deps.Scanner.ModelInfo()
		logger.WithFields(map[string]any{
			"model_type": info.ModelType,
			"trees":      info.Trees,
			"classes":    info.Classes,
		}).Info("Model loaded from %s", info.ModelPath)
	}

	app := NewApp(cfg, deps)
	return app, cleanup, nil
}

// NewApp registers middleware and routes on a new fiber app.
func NewApp(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		AppName:               "url-scanner",

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// Batch requests are the largest bodies
		BodyLimit:    1 * 1024 * 1024,
		ServerHeader: "",
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset,Retry-After",
		MaxAge:        86400,
	}))

	http.NewHealthHandlerWithDeps(deps.Scanner, deps.Redis, deps.MongoDB).Register(app)

	api := app.Group("/api/v1")
	api.Use(middleware.NoCache())
	api.Use(middleware.RequireJSON())
	if deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter))
	}

	scanHandler := http.NewScanHandler(http.ScanHandlerConfig{
		Scanner:      deps.Scanner,
		Batch:        deps.Batch,
		Reports:      deps.Reports,
		Stats:        deps.Scanner,
		BatchTimeout: cfg.BatchTimeout,
	})
	scanHandler.Register(api)

	return app
}
