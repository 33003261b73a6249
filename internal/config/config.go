package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	DevMode  bool
	LogLevel string

	DatabasePath string

	// Heartbeat execution
	BeatSchedule           string // cron spec, e.g. "@hourly"
	NumQubits              int
	Shots                  int
	BackendRotation        []string // backend names cycled beat by beat; empty = auto
	MinBeatIntervalSeconds float64  // 0 disables the gate; cron is then the only pacing

	// Budget
	QuotaSeconds       float64 // hard ceiling per period
	QuotaPeriodDays    int
	BeatCeilingSeconds float64 // expected worst-case seconds per execution
	SafetyMargin       float64 // fraction added on top of the ceiling
	MaxRetries         int
	RetryBackoffMs     int

	// Encoding pipeline
	TopologyStrategy string
	ColorStrategy    string
	HueOffset        float64
	PointBudgetCap   int

	// Surface reconstruction
	GridResolution    int
	BaseRadius        float64
	DisplacementScale float64

	// Cloud upload (optional)
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8010),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabasePath: getEnv("DATABASE_PATH", "./data/heartbeat.db"),

		BeatSchedule:           getEnv("BEAT_SCHEDULE", "@hourly"),
		NumQubits:              getEnvAsInt("NUM_QUBITS", 5),
		Shots:                  getEnvAsInt("SHOTS", 1024),
		BackendRotation:        getEnvAsList("BACKEND_ROTATION"),
		MinBeatIntervalSeconds: getEnvAsFloat("MIN_BEAT_INTERVAL_SECONDS", 0),

		QuotaSeconds:       getEnvAsFloat("QUOTA_SECONDS", 600.0),
		QuotaPeriodDays:    getEnvAsInt("QUOTA_PERIOD_DAYS", 30),
		BeatCeilingSeconds: getEnvAsFloat("BEAT_CEILING_SECONDS", 0.75),
		SafetyMargin:       getEnvAsFloat("SAFETY_MARGIN", 0.1),
		MaxRetries:         getEnvAsInt("MAX_RETRIES", 3),
		RetryBackoffMs:     getEnvAsInt("RETRY_BACKOFF_MS", 2000),

		TopologyStrategy: getEnv("TOPOLOGY_STRATEGY", "uniform-probability"),
		ColorStrategy:    getEnv("COLOR_STRATEGY", "by-value"),
		HueOffset:        getEnvAsFloat("HUE_OFFSET", 0.0),
		PointBudgetCap:   getEnvAsInt("POINT_BUDGET_CAP", 512),

		GridResolution:    getEnvAsInt("GRID_RESOLUTION", 48),
		BaseRadius:        getEnvAsFloat("BASE_RADIUS", 1.0),
		DisplacementScale: getEnvAsFloat("DISPLACEMENT_SCALE", 0.1),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Region:    getEnv("S3_REGION", "us-south"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.NumQubits <= 0 {
		return fmt.Errorf("NUM_QUBITS must be positive")
	}
	if c.Shots <= 0 {
		return fmt.Errorf("SHOTS must be positive")
	}
	if c.QuotaSeconds <= 0 {
		return fmt.Errorf("QUOTA_SECONDS must be positive")
	}
	if c.BeatCeilingSeconds <= 0 {
		return fmt.Errorf("BEAT_CEILING_SECONDS must be positive")
	}
	if c.GridResolution < 2 {
		return fmt.Errorf("GRID_RESOLUTION must be at least 2")
	}
	return nil
}

// UploadEnabled reports whether cloud upload is configured.
func (c *Config) UploadEnabled() bool {
	return c.S3Bucket != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
