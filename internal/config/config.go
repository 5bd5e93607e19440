package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL string
	ModelDir    string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scheduled job configuration.
	AggregationSpec string // cron spec for the monthly aggregation job
	PredictionSpec  string // cron spec for the prediction job
	MonthsBack      int    // how many past months each aggregation run covers
	ForecastHorizon int    // months predicted per prediction run

	// Kafka forecast publishing (optional, enabled when brokers are set).
	KafkaBrokers       []string
	KafkaForecastTopic string
	KafkaEnabled       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	monthsBack, err := parseBoundedInt("AGGREGATION_MONTHS_BACK", 3, 1, 120)
	if err != nil {
		return nil, err
	}

	horizon, err := parseBoundedInt("FORECAST_HORIZON", 12, 1, 60)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ModelDir:    envOrDefault("MODEL_DIR", "/var/lib/climate-engine/models"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		AggregationSpec: envOrDefault("AGGREGATION_CRON", "0 2 1 * *"), // 02:00 on the 1st
		PredictionSpec:  envOrDefault("PREDICTION_CRON", "0 4 1 * *"),  // 04:00 on the 1st
		MonthsBack:      monthsBack,
		ForecastHorizon: horizon,

		KafkaBrokers:       brokers,
		KafkaForecastTopic: envOrDefault("KAFKA_FORECAST_TOPIC", "climate-forecasts"),
		KafkaEnabled:       kafkaEnabled,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.ModelDir == "" {
		return nil, errors.New("MODEL_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBoundedInt(key string, fallback, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, min, max)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
