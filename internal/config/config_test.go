package config

import (
	"os"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != defaultWriteTimeout {
		t.Errorf("expected default write timeout %v, got %v", defaultWriteTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", defaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.LLM.OpenAIModel != defaultOpenAIModel {
		t.Errorf("expected default openai model %q, got %q", defaultOpenAIModel, cfg.LLM.OpenAIModel)
	}
	if cfg.LLM.AnthropicModel != defaultAnthropicModel {
		t.Errorf("expected default anthropic model %q, got %q", defaultAnthropicModel, cfg.LLM.AnthropicModel)
	}
	if cfg.LLM.MaxOutputTokens != defaultMaxOutputTokens {
		t.Errorf("expected default max output tokens %d, got %d", defaultMaxOutputTokens, cfg.LLM.MaxOutputTokens)
	}
	if cfg.LLM.Timeout != 0 {
		t.Errorf("expected no llm timeout by default, got %v", cfg.LLM.Timeout)
	}
	if cfg.Auth.TokenTTL != defaultTokenTTL {
		t.Errorf("expected default token ttl %v, got %v", defaultTokenTTL, cfg.Auth.TokenTTL)
	}
	if !cfg.Auth.InsecureJWTSecret() {
		t.Error("expected placeholder jwt secret to be reported as insecure")
	}
	if cfg.Database.MaxOpenConns != defaultMaxOpenConns {
		t.Errorf("expected default max open conns %d, got %d", defaultMaxOpenConns, cfg.Database.MaxOpenConns)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                     "9090",
		"SERVER_READ_TIMEOUT_SECONDS":     "30",
		"SERVER_WRITE_TIMEOUT_SECONDS":    "45",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "15",
		"LOG_LEVEL":                       "debug",
		"LOG_FORMAT":                      "text",
		"JWT_SECRET":                      "s3cret",
		"TOKEN_TTL_HOURS":                 "2",
		"OPENAI_MODEL":                    "gpt-4o-mini",
		"ANTHROPIC_MODEL":                 "claude-3-haiku-20240307",
		"LLM_MAX_OUTPUT_TOKENS":           "512",
		"LLM_TIMEOUT_SECONDS":             "60",
		"DB_MAX_OPEN_CONNS":               "7",
		"PRICING_FILE":                    "/etc/promptlib/prices.yaml",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != overrides["SERVER_PORT"] {
		t.Errorf("expected overridden port %q, got %q", overrides["SERVER_PORT"], cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 45*time.Second {
		t.Errorf("expected write timeout %v, got %v", 45*time.Second, cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected shutdown timeout %v, got %v", 15*time.Second, cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Logging.Format != overrides["LOG_FORMAT"] {
		t.Errorf("expected log format %q, got %q", overrides["LOG_FORMAT"], cfg.Logging.Format)
	}
	if cfg.Auth.InsecureJWTSecret() {
		t.Error("expected overridden jwt secret to be treated as configured")
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected token ttl %v, got %v", 2*time.Hour, cfg.Auth.TokenTTL)
	}
	if cfg.LLM.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("expected openai model override, got %q", cfg.LLM.OpenAIModel)
	}
	if cfg.LLM.AnthropicModel != "claude-3-haiku-20240307" {
		t.Errorf("expected anthropic model override, got %q", cfg.LLM.AnthropicModel)
	}
	if cfg.LLM.MaxOutputTokens != 512 {
		t.Errorf("expected max output tokens 512, got %d", cfg.LLM.MaxOutputTokens)
	}
	if cfg.LLM.Timeout != time.Minute {
		t.Errorf("expected llm timeout %v, got %v", time.Minute, cfg.LLM.Timeout)
	}
	if cfg.Database.MaxOpenConns != 7 {
		t.Errorf("expected max open conns 7, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Pricing.File != overrides["PRICING_FILE"] {
		t.Errorf("expected pricing file %q, got %q", overrides["PRICING_FILE"], cfg.Pricing.File)
	}
}

func TestLoadPrefersPortOverServerPort(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("expected PORT to win, got %q", cfg.Server.Port)
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":     "-1",
		"SERVER_WRITE_TIMEOUT_SECONDS":    "abc",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "3.5",
		"LOG_LEVEL":                       "verbose",
		"LOG_FORMAT":                      "xml",
		"DB_MAX_OPEN_CONNS":               "0",
		"DB_MAX_IDLE_CONNS":               "-3",
		"TOKEN_TTL_HOURS":                 "forever",
		"LLM_MAX_OUTPUT_TOKENS":           "0",
		"LLM_TIMEOUT_SECONDS":             "-5",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestLoadDoesNotPersistEnvBetweenRuns(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "5")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.Unsetenv("SERVER_READ_TIMEOUT_SECONDS"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout after reset, got %v", cfg.Server.ReadTimeout)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_WRITE_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATABASE_URL",
		"INSTANCE_CONNECTION_NAME",
		"DB_USER",
		"DB_PASSWORD",
		"DB_NAME",
		"DB_MAX_OPEN_CONNS",
		"DB_MAX_IDLE_CONNS",
		"JWT_SECRET",
		"TOKEN_TTL_HOURS",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY",
		"ANTHROPIC_MODEL",
		"ANTHROPIC_BASE_URL",
		"LLM_MAX_OUTPUT_TOKENS",
		"LLM_TIMEOUT_SECONDS",
		"PRICING_FILE",
	}

	for _, key := range keys {
		t.Setenv(key, "")
	}
}
