// Package config loads runtime configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultBodyLimitBytes = 4 * 1024 * 1024

// Config contains runtime configuration required by the service.
type Config struct {
	ListenAddr     string
	IngestPath     string
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaClientID  string
	CaptureMode    string // "raw" or "spans"
	BodyLimitBytes int64
	DroppedTokens  string
}

// Load reads required values from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     envOr("CAPTURE_ADDR", ":3000"),
		IngestPath:     envOr("CAPTURE_INGEST_PATH", "/i/v0/otel"),
		KafkaTopic:     envOr("KAFKA_TOPIC", "events_plugin_ingestion"),
		KafkaClientID:  envOr("KAFKA_CLIENT_ID", "otelcapture"),
		CaptureMode:    envOr("CAPTURE_MODE", "raw"),
		BodyLimitBytes: defaultBodyLimitBytes,
		DroppedTokens:  strings.TrimSpace(os.Getenv("DROPPED_TOKENS")),
	}

	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		return Config{}, errors.New("KAFKA_BROKERS required")
	}
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
		}
	}

	if cfg.CaptureMode != "raw" && cfg.CaptureMode != "spans" {
		return Config{}, fmt.Errorf("CAPTURE_MODE must be %q or %q", "raw", "spans")
	}

	if limit := strings.TrimSpace(os.Getenv("CAPTURE_BODY_LIMIT_BYTES")); limit != "" {
		parsed, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || parsed <= 0 {
			return Config{}, errors.New("CAPTURE_BODY_LIMIT_BYTES must be a positive integer")
		}
		cfg.BodyLimitBytes = parsed
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
