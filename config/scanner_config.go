package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Model artifact
	ModelPath  string
	LabelsPath string
	EagerLoad  bool

	// Trust override
	TrustListFile           string
	TrustOverrideConfidence float64

	// Rate limiting
	RedisURL        string
	RateLimitPerMin int

	// Batch reports
	MongoDBURL   string
	MongoDBName  string
	ReportDir    string
	BatchWorkers int
	BatchTimeout time.Duration

	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Model
		ModelPath:  getEnv("MODEL_PATH", "models/url_forest.json"),
		LabelsPath: getEnv("LABELS_PATH", "models/label_encoder.json"),
		EagerLoad:  getEnvBool("EAGER_LOAD", true),

		// Trust
		TrustListFile:           getEnv("TRUST_LIST_FILE", ""),
		TrustOverrideConfidence: getEnvFloat("TRUST_OVERRIDE_CONFIDENCE", 95.0),

		// Rate limit
		RedisURL:        getEnv("REDIS_URL", ""),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 120),

		// Reports
		MongoDBURL:   getEnv("MONGODB_URL", ""),
		MongoDBName:  getEnv("MONGODB_DATABASE", "urlscan"),
		ReportDir:    getEnv("REPORT_DIR", "reports"),
		BatchWorkers: getEnvInt("BATCH_WORKERS", 4),
		BatchTimeout: time.Duration(getEnvInt("BATCH_TIMEOUT_SEC", 60)) * time.Second,

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8501"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.ModelPath == "" || c.LabelsPath == "" {
		return fmt.Errorf("MODEL_PATH and LABELS_PATH are required")
	}
	if c.TrustOverrideConfidence <= 0 || c.TrustOverrideConfidence > 100 {
		return fmt.Errorf("TRUST_OVERRIDE_CONFIDENCE must be in (0, 100], got %v", c.TrustOverrideConfidence)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.BatchWorkers)
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative, got %d", c.RateLimitPerMin)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
