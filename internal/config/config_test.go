package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_TRANSPORT_MODE", "mock")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.MetricsNamespace != "aria" {
		t.Fatalf("MetricsNamespace = %q, want aria", cfg.MetricsNamespace)
	}
	if cfg.OutputSampleRate != 24000 {
		t.Fatalf("OutputSampleRate = %d, want 24000", cfg.OutputSampleRate)
	}
	if cfg.HistoryLimit != 50 {
		t.Fatalf("HistoryLimit = %d, want 50", cfg.HistoryLimit)
	}
}

func TestLoadLiveModeRequiresAPIKey(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_TRANSPORT_MODE", "live")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() succeeded without GEMINI_API_KEY in live mode")
	}

	t.Setenv("GEMINI_API_KEY", "test-key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GeminiAPIKey != "test-key" {
		t.Fatalf("GeminiAPIKey = %q, want test-key", cfg.GeminiAPIKey)
	}
}

func TestLoadRejectsUnknownTransportMode(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_TRANSPORT_MODE", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() accepted unknown transport mode")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_TRANSPORT_MODE", "mock")
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("APP_OUTPUT_SAMPLE_RATE", "48000")
	t.Setenv("APP_HISTORY_LIMIT", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ShutdownTimeout.Seconds() != 5 {
		t.Fatalf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.OutputSampleRate != 48000 {
		t.Fatalf("OutputSampleRate = %d, want 48000", cfg.OutputSampleRate)
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("HistoryLimit = %d, want 10", cfg.HistoryLimit)
	}

	t.Setenv("APP_OUTPUT_SAMPLE_RATE", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() accepted malformed APP_OUTPUT_SAMPLE_RATE")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_TRANSPORT_MODE",
		"APP_OUTPUT_SAMPLE_RATE",
		"APP_HISTORY_LIMIT",
		"GEMINI_API_KEY",
		"GEMINI_WS_BASE_URL",
		"GEMINI_MODEL",
		"DATABASE_URL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
