// Package config loads client configuration from environment variables
// with sensible defaults. Invalid values fall back to defaults rather
// than aborting startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig identifies this client instance.
type ServiceConfig struct {
	Principal string
}

// APIConfig configures the backend transport.
type APIConfig struct {
	BaseURL   string
	SessionID string
	Timeout   time.Duration
}

// PollingConfig configures the status polling scheduler.
type PollingConfig struct {
	Interval      time.Duration
	MaxEmptyPolls int
}

// DownloadConfig configures artifact retrieval.
type DownloadConfig struct {
	Dir string
}

// KafkaConfig configures the lifecycle event publisher.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicStatus   string
	TopicTerminal string
	Principal     string
}

// ObservabilityConfig configures logging and the metrics endpoint.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Configuration is the full client configuration.
type Configuration struct {
	Service       ServiceConfig
	API           APIConfig
	Polling       PollingConfig
	Download      DownloadConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// Load reads configuration from the environment.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "voice-analysis-client")

	cfg := &Configuration{
		Service: ServiceConfig{
			Principal: principal,
		},
		API: APIConfig{
			BaseURL:   envOrDefault("API_BASE_URL", "http://localhost:8000/api"),
			SessionID: os.Getenv("SESSION_ID"),
			Timeout:   envOrDefaultDuration("API_TIMEOUT", 30*time.Second),
		},
		Polling: PollingConfig{
			Interval:      envOrDefaultDuration("POLL_INTERVAL", 5*time.Second),
			MaxEmptyPolls: envOrDefaultInt("POLL_MAX_EMPTY", 12),
		},
		Download: DownloadConfig{
			Dir: envOrDefault("DOWNLOAD_DIR", "downloads"),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envList("KAFKA_BROKERS"),
			TopicStatus:   envOrDefault("KAFKA_TOPIC_STATUS", "analysis.job.status_changed"),
			TopicTerminal: envOrDefault("KAFKA_TOPIC_TERMINAL", "analysis.job.terminal"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9091"),
		},
	}

	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
