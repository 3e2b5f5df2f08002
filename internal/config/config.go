package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Model sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceRemote   = "remote"
)

type Config struct {
	Port         string
	GinMode      string
	DatabaseURL  string
	EnableDB     bool
	AllowOrigins []string
	OTelEnabled  bool
	Model        ModelConfig
}

type ModelConfig struct {
	Source       string
	Path         string
	Name         string
	ServiceURL   string
	Timeout      time.Duration
	Threshold    float64
	Watch        bool
	PollInterval time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "release"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		EnableDB:     getEnvAsBool("ENABLE_DB", false),
		AllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
		OTelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
		Model: ModelConfig{
			Source:       strings.ToLower(getEnv("MODEL_SOURCE", SourceFile)),
			Path:         getEnv("MODEL_PATH", "models/cardio_model.json"),
			Name:         getEnv("MODEL_NAME", "cardio"),
			ServiceURL:   os.Getenv("MODEL_SERVICE_URL"),
			Watch:        getEnvAsBool("MODEL_WATCH", true),
			PollInterval: time.Minute,
			Timeout:      2 * time.Second,
		},
	}

	var err error
	if cfg.Model.Timeout, err = getEnvAsDuration("MODEL_TIMEOUT", cfg.Model.Timeout); err != nil {
		return nil, err
	}
	if cfg.Model.PollInterval, err = getEnvAsDuration("MODEL_POLL_INTERVAL", cfg.Model.PollInterval); err != nil {
		return nil, err
	}
	if cfg.Model.Threshold, err = getEnvAsFloat("MODEL_THRESHOLD", 0); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Model.Source {
	case SourceFile:
		if c.Model.Path == "" {
			return fmt.Errorf("MODEL_PATH is required when MODEL_SOURCE=file")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when MODEL_SOURCE=postgres")
		}
	case SourceRemote:
		if c.Model.ServiceURL == "" {
			return fmt.Errorf("MODEL_SERVICE_URL is required when MODEL_SOURCE=remote")
		}
	default:
		return fmt.Errorf("unknown MODEL_SOURCE %q", c.Model.Source)
	}

	if c.EnableDB && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be positive")
	}
	if c.Model.Threshold < 0 || c.Model.Threshold >= 1 {
		return fmt.Errorf("MODEL_THRESHOLD must be in [0,1)")
	}
	return nil
}

// UsesDB reports whether a database pool is needed.
func (c *Config) UsesDB() bool {
	return c.EnableDB || c.Model.Source == SourcePostgres
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
