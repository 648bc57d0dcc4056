package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr          = ":8080"
	defaultDBPath              = "frontier.db"
	defaultProvidersFile       = "providers.yaml"
	defaultGlobalConcurrency   = 3
	defaultProviderConcurrency = 1
	defaultSeed                = 20240601
	defaultCallTimeout         = 120 * time.Second
	defaultMQTTTopic           = "frontier/sweeps"

	envListenAddr          = "FRONTIER_LISTEN_ADDR"
	envDBPath              = "FRONTIER_DB_PATH"
	envLogLevel            = "FRONTIER_LOG_LEVEL"
	envProvidersFile       = "FRONTIER_PROVIDERS_FILE"
	envGlobalConcurrency   = "FRONTIER_GLOBAL_CONCURRENCY"
	envProviderConcurrency = "FRONTIER_PROVIDER_CONCURRENCY"
	envSeed                = "FRONTIER_SEED"
	envScenarioBank        = "FRONTIER_SCENARIO_BANK"
	envCallTimeout         = "FRONTIER_CALL_TIMEOUT"
	envMQTTBroker          = "FRONTIER_MQTT_BROKER"
	envMQTTTopic           = "FRONTIER_MQTT_TOPIC"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr          string
	DBPath              string
	LogLevel            slog.Level
	ProvidersFile       string
	GlobalConcurrency   int
	ProviderConcurrency int
	Seed                int64
	// ScenarioBank is an optional YAML scenario bank. Empty means generated scenarios.
	ScenarioBank string
	CallTimeout  time.Duration
	// MQTTBroker enables the MQTT progress mirror when set.
	MQTTBroker string
	MQTTTopic  string
}

// Load reads configuration from environment variables with sensible defaults.
// Malformed numeric values fall back to their defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:          defaultListenAddr,
		DBPath:              defaultDBPath,
		LogLevel:            slog.LevelInfo,
		ProvidersFile:       defaultProvidersFile,
		GlobalConcurrency:   defaultGlobalConcurrency,
		ProviderConcurrency: defaultProviderConcurrency,
		Seed:                defaultSeed,
		CallTimeout:         defaultCallTimeout,
		MQTTTopic:           defaultMQTTTopic,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envProvidersFile); v != "" {
		cfg.ProvidersFile = v
	}
	cfg.GlobalConcurrency = positiveInt(os.Getenv(envGlobalConcurrency), cfg.GlobalConcurrency)
	cfg.ProviderConcurrency = positiveInt(os.Getenv(envProviderConcurrency), cfg.ProviderConcurrency)
	if v := os.Getenv(envSeed); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
	cfg.ScenarioBank = os.Getenv(envScenarioBank)
	if v := os.Getenv(envCallTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CallTimeout = d
		}
	}
	cfg.MQTTBroker = os.Getenv(envMQTTBroker)
	if v := os.Getenv(envMQTTTopic); v != "" {
		cfg.MQTTTopic = v
	}

	return cfg
}

func positiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
