package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries every environment-driven setting the analysis service
// reads at startup.
type Config struct {
	Addr        string
	DatabaseURL string

	// Masumi ledger submission over Kafka.
	LedgerEnabled bool
	KafkaBrokers  []string
	KafkaTopic    string

	// Frozen-report archival.
	S3Bucket string
	S3Prefix string

	// Narrative generation.
	GeminiAPIKey string
	GeminiModel  string

	// External threshold lookup, optional.
	ThresholdServiceURL string

	JWTSecret       string
	AllowDebugToken bool
	DebugToken      string
}

const (
	defaultAddr       = ":8071"
	defaultKafkaTopic = "masumi.transactions"
)

func Load() (Config, error) {
	cfg := Config{
		Addr:                getEnv("ANALYSIS_ADDR", defaultAddr),
		DatabaseURL:         firstNonEmpty(os.Getenv("ANALYSIS_DATABASE_URL"), os.Getenv("DATABASE_URL")),
		LedgerEnabled:       getBool("MASUMI_ENABLED", false),
		KafkaBrokers:        splitList(os.Getenv("MASUMI_KAFKA_BROKERS")),
		KafkaTopic:          getEnv("MASUMI_KAFKA_TOPIC", defaultKafkaTopic),
		S3Bucket:            os.Getenv("ANALYSIS_S3_BUCKET"),
		S3Prefix:            os.Getenv("ANALYSIS_S3_PREFIX"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
		ThresholdServiceURL: os.Getenv("THRESHOLD_SERVICE_URL"),
		JWTSecret:           os.Getenv("ANALYSIS_JWT_SECRET"),
		AllowDebugToken:     getBool("ANALYSIS_ALLOW_DEBUG_TOKEN", false),
		DebugToken:          os.Getenv("ANALYSIS_DEBUG_TOKEN"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL or ANALYSIS_DATABASE_URL required")
	}
	if cfg.LedgerEnabled && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("MASUMI_KAFKA_BROKERS required when MASUMI_ENABLED=true")
	}
	if cfg.JWTSecret == "" && !cfg.AllowDebugToken {
		return Config{}, fmt.Errorf("ANALYSIS_JWT_SECRET required unless ANALYSIS_ALLOW_DEBUG_TOKEN=true")
	}
	if cfg.AllowDebugToken && cfg.DebugToken == "" {
		return Config{}, fmt.Errorf("ANALYSIS_DEBUG_TOKEN required when ANALYSIS_ALLOW_DEBUG_TOKEN=true")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
