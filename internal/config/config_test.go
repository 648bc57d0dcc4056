package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		envListenAddr, envDBPath, envLogLevel, envProvidersFile, envGlobalConcurrency,
		envProviderConcurrency, envSeed, envScenarioBank, envCallTimeout, envMQTTBroker, envMQTTTopic,
	} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.GlobalConcurrency != 3 || cfg.ProviderConcurrency != 1 {
		t.Errorf("concurrency = %d/%d, want 3/1", cfg.GlobalConcurrency, cfg.ProviderConcurrency)
	}
	if cfg.Seed != defaultSeed {
		t.Errorf("Seed = %d, want %d", cfg.Seed, defaultSeed)
	}
	if cfg.CallTimeout != defaultCallTimeout {
		t.Errorf("CallTimeout = %v, want %v", cfg.CallTimeout, defaultCallTimeout)
	}
	if cfg.MQTTBroker != "" || cfg.MQTTTopic != defaultMQTTTopic {
		t.Errorf("MQTT = %q/%q, want disabled with default topic", cfg.MQTTBroker, cfg.MQTTTopic)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/test.db")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envGlobalConcurrency, "8")
	t.Setenv(envProviderConcurrency, "2")
	t.Setenv(envSeed, "7")
	t.Setenv(envCallTimeout, "45s")
	t.Setenv(envMQTTBroker, "tcp://localhost:1883")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.GlobalConcurrency != 8 || cfg.ProviderConcurrency != 2 {
		t.Errorf("concurrency = %d/%d, want 8/2", cfg.GlobalConcurrency, cfg.ProviderConcurrency)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.CallTimeout != 45*time.Second {
		t.Errorf("CallTimeout = %v, want 45s", cfg.CallTimeout)
	}
	if cfg.MQTTBroker != "tcp://localhost:1883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv(envGlobalConcurrency, "lots")
	t.Setenv(envProviderConcurrency, "-1")
	t.Setenv(envCallTimeout, "soon")

	cfg := Load()

	if cfg.GlobalConcurrency != defaultGlobalConcurrency {
		t.Errorf("GlobalConcurrency = %d, want default", cfg.GlobalConcurrency)
	}
	if cfg.ProviderConcurrency != defaultProviderConcurrency {
		t.Errorf("ProviderConcurrency = %d, want default", cfg.ProviderConcurrency)
	}
	if cfg.CallTimeout != defaultCallTimeout {
		t.Errorf("CallTimeout = %v, want default", cfg.CallTimeout)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := parseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

func TestLoadProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	doc := `
providers:
  - name: openai
    family: openai
    base_url: https://api.openai.com/v1
    api_key_env: OPENAI_API_KEY
  - name: anthropic
    family: anthropic
    base_url: https://api.anthropic.com
    api_key_env: ANTHROPIC_API_KEY
    headers:
      anthropic-beta: tools-2024-04-04
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	providers, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("LoadProviders: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("got %d providers, want 2", len(providers))
	}
	if providers[1].Family != "anthropic" || providers[1].APIKeyEnv != "ANTHROPIC_API_KEY" {
		t.Errorf("provider[1] = %+v", providers[1])
	}
	if providers[1].Headers["anthropic-beta"] != "tools-2024-04-04" {
		t.Errorf("headers = %v", providers[1].Headers)
	}
}

func TestParseProvidersValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "providers:\n  - family: openai\n    base_url: http://x\n"},
		{"missing family", "providers:\n  - name: a\n    base_url: http://x\n"},
		{"missing base url", "providers:\n  - name: a\n    family: openai\n"},
		{"duplicate", "providers:\n  - {name: a, family: openai, base_url: http://x}\n  - {name: a, family: openai, base_url: http://y}\n"},
		{"not yaml", "providers: [\n"},
	}
	for _, tt := range tests {
		if _, err := ParseProviders([]byte(tt.doc)); err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
	}
}

func TestLoadProvidersMissingFile(t *testing.T) {
	if _, err := LoadProviders(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
