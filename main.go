package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scanner_server/config"
	"scanner_server/internal/bootstrap"
	"scanner_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 15 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	mode := flag.String("mode", "api", "Run mode: api, scan, batch, schema")
	rawURL := flag.String("url", "", "URL to scan (scan mode)")
	casesFile := flag.String("cases", "", "YAML file of validation cases (batch mode)")
	flag.Parse()

	// Load .env file if exists (for local development)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// CLI modes print results on stdout, so logs go to stderr
	logOutput := os.Stdout
	if *mode != "api" {
		logOutput = os.Stderr
	}
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Output:  logOutput,
		Service: "url-scanner",
	})
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	switch *mode {
	case "api":
		runAPI(cfg)
	case "scan":
		runCLI(cfg, func(ctx context.Context, deps *bootstrap.Dependencies) error {
			return bootstrap.RunScan(ctx, deps, *rawURL, os.Stdout)
		})
	case "batch":
		runCLI(cfg, func(ctx context.Context, deps *bootstrap.Dependencies) error {
			_, err := bootstrap.RunBatch(ctx, deps, *casesFile, os.Stdout)
			return err
		})
	case "schema":
		runCLI(cfg, func(_ context.Context, deps *bootstrap.Dependencies) error {
			return bootstrap.RunSchema(deps, os.Stdout)
		})
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(cfg *config.Config) {
	app, cleanup, err := bootstrap.NewAPI(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}
	defer cleanup()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

func runCLI(cfg *config.Config, run func(ctx context.Context, deps *bootstrap.Dependencies) error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := bootstrap.NewDependencies(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}

	err = run(ctx, deps)
	cleanup()
	if err != nil {
		logger.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
