package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice client core.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// TransportMode selects the conversational backend: "live" talks to the
	// realtime API, "mock" runs fully offline.
	TransportMode string

	GeminiAPIKey    string
	GeminiWSBaseURL string
	GeminiModel     string

	OutputSampleRate int

	DatabaseURL  string
	HistoryLimit int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "aria"),
		TransportMode:    strings.ToLower(envOrDefault("APP_TRANSPORT_MODE", "live")),
		GeminiAPIKey:     trimmedEnv("GEMINI_API_KEY"),
		GeminiWSBaseURL:  envOrDefault("GEMINI_WS_BASE_URL", ""),
		GeminiModel:      envOrDefault("GEMINI_MODEL", ""),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		OutputSampleRate: 24000,
		HistoryLimit:     50,
		ShutdownTimeout:  15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.OutputSampleRate, err = intFromEnv("APP_OUTPUT_SAMPLE_RATE", cfg.OutputSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("APP_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}

	switch cfg.TransportMode {
	case "live", "mock":
	default:
		return Config{}, fmt.Errorf("APP_TRANSPORT_MODE must be live or mock, got %q", cfg.TransportMode)
	}
	if cfg.TransportMode == "live" && cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY is required in live transport mode")
	}
	if cfg.OutputSampleRate <= 0 {
		return Config{}, fmt.Errorf("APP_OUTPUT_SAMPLE_RATE must be positive")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
